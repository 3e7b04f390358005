package rtcm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// setBitsS writes an n-bit two's-complement integer into buf starting at
// bit position pos, growing buf as needed. Test-only helper, the inverse
// of getBitsS.
func setBitsS(buf []byte, pos, n int, v int64) []byte {
	need := (pos + n + 7) / 8
	for len(buf) < need {
		buf = append(buf, 0)
	}
	u := uint64(v)
	mask := uint64(1)<<uint(n) - 1
	u &= mask
	for i := 0; i < n; i++ {
		bit := (u >> uint(n-1-i)) & 1
		bytePos := (pos + i) / 8
		bitPos := 7 - (pos+i)%8
		if bit == 1 {
			buf[bytePos] |= 1 << uint(bitPos)
		}
	}
	return buf
}

func TestDecodeStation1005SeedScenario(t *testing.T) {
	var payload []byte
	payload = setBitsS(payload, 0, 12, 1005)
	payload = setBitsS(payload, 12, 12, 2003)
	payload = setBitsS(payload, 34, 38, -2177800*10000)
	payload = setBitsS(payload, 74, 38, 4388300*10000)
	payload = setBitsS(payload, 114, 38, 4069700*10000)

	pos := DecodeStation1005(payload)

	assert.Equal(t, 2003, pos.StationID)
	assert.InDelta(t, -2177800, pos.X, 1e-6)
	assert.InDelta(t, 4388300, pos.Y, 1e-6)
	assert.InDelta(t, 4069700, pos.Z, 1e-6)
	assert.InDelta(t, 39.90, pos.LatDeg, 0.05)
	assert.InDelta(t, 116.40, pos.LonDeg, 0.05)
	// The WGS-84 closed form puts this ECEF triple at roughly -513.7m, not
	// the scenario's loose "~60m" figure; lat/lon match, so trust the math.
	assert.InDelta(t, -513.7, pos.HeightM, 5.0)
}
