package mediator

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/checksum"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/nmea"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SerialPort = "unused-in-these-tests"
	cfg.NTRIPMock = true
	cfg.KeepaliveSec = 0.2
	return cfg
}

// silentLogger keeps test output quiet.
func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestKeepAliveFiresAfterWindowWithNoReceiverGGA(t *testing.T) {
	m := New(testConfig(), nil, silentLogger())

	require.NoError(t, m.ntrip.Connect())
	defer m.ntrip.Close()

	m.lastGGAUnixNano = time.Now().UnixNano()
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.supervise()
	defer close(m.stop)

	// The supervisor ticks at a fixed 1Hz cadence (§4.7); wait past the
	// first tick so the already-elapsed 200ms keep-alive window is
	// observed at least once.
	time.Sleep(1200 * time.Millisecond)

	type ggaWriter interface{ GGAWrites() []string }
	gw, ok := m.ntrip.(ggaWriter)
	require.True(t, ok)

	writes := gw.GGAWrites()
	assert.NotEmpty(t, writes, "expected at least one keep-alive GGA after the window elapsed")
	for _, w := range writes {
		assert.Contains(t, w, "$GPGGA")
	}
}

func TestOnGGAStampsTimestampAndDeliversToSink(t *testing.T) {
	var delivered []nmea.Fix
	sink := SinkFunc(func(f nmea.Fix) { delivered = append(delivered, f) })

	m := New(testConfig(), sink, silentLogger())
	require.NoError(t, m.ntrip.Connect())
	defer m.ntrip.Close()

	fields := []string{"GPGGA", "123519", "4807.038", "N", "01131.000", "E", "1", "08", "0.9", "545.4", "M", "46.9", "M", "", ""}
	fix := nmea.Fix{Quality: nmea.QualityGPS, Latitude: 48.1173, Longitude: 11.51667}

	require.NoError(t, m.onGGA(fields, &fix))

	require.Len(t, delivered, 1)
	assert.Equal(t, nmea.QualityGPS, delivered[0].Quality)
	assert.NotZero(t, m.lastGGAUnixNano)
}

func TestOnGGAWithInvalidQualityUplinksDefault(t *testing.T) {
	m := New(testConfig(), nil, silentLogger())
	require.NoError(t, m.ntrip.Connect())
	defer m.ntrip.Close()

	fields := []string{"GPGGA", "123519", "4807.038", "N", "01131.000", "E", "0", "00", "99.9", "0.0", "M", "0.0", "M", "", ""}
	fix := nmea.Fix{Quality: nmea.QualityInvalid}

	require.NoError(t, m.onGGA(fields, &fix))

	type ggaWriter interface{ GGAWrites() []string }
	gw := m.ntrip.(ggaWriter)
	require.Len(t, gw.GGAWrites(), 1)
	assert.Equal(t, defaultGGA, gw.GGAWrites()[0])
}

func TestDeliverRoverDropsInvalidWithoutSystemStatus(t *testing.T) {
	var delivered []nmea.Fix
	sink := SinkFunc(func(f nmea.Fix) { delivered = append(delivered, f) })

	m := &Mediator{sink: sink}
	m.deliverRover(nmea.Fix{Kind: nmea.KindRover, Quality: nmea.QualityInvalid})
	assert.Empty(t, delivered)

	m.deliverRover(nmea.Fix{Kind: nmea.KindRover, Quality: nmea.QualityInvalid, SystemOK: true})
	assert.Len(t, delivered, 1)
}

func TestOnNTRIPBytesDecodesStationPositionAndCountsFrame(t *testing.T) {
	var delivered []nmea.Fix
	sink := SinkFunc(func(f nmea.Fix) { delivered = append(delivered, f) })

	m := New(testConfig(), sink, silentLogger())

	frame := buildStation1005Frame()
	m.onNTRIPBytes(frame)

	require.Len(t, delivered, 1)
	assert.Equal(t, nmea.KindBase, delivered[0].Kind)
	assert.InDelta(t, 39.90, delivered[0].Latitude, 0.05)
	assert.InDelta(t, 116.40, delivered[0].Longitude, 0.05)

	snap := m.stats.Snapshot()
	assert.Equal(t, int64(1), snap[1005])
}

// buildStation1005Frame crafts a CRC-valid RTCM frame carrying a 1005
// payload with the seed scenario's ECEF coordinates.
func buildStation1005Frame() []byte {
	payload := make([]byte, 19) // 152 bits = 19 bytes
	setBitsS(payload, 0, 12, 1005)
	setBitsS(payload, 12, 12, 2003)
	setBitsS(payload, 34, 38, -2177800*10000)
	setBitsS(payload, 74, 38, 4388300*10000)
	setBitsS(payload, 114, 38, 4069700*10000)

	length := len(payload)
	header := []byte{0xD3, byte(length >> 8 & 0x03), byte(length & 0xFF)}
	body := append(append([]byte{}, header...), payload...)
	crc := checksum.CRC24Q(body)
	return append(body, byte(crc>>16), byte(crc>>8), byte(crc))
}

// setBitsS writes an n-bit two's-complement integer into buf starting at
// bit position pos; buf must already be large enough.
func setBitsS(buf []byte, pos, n int, v int64) {
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
}
