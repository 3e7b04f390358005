package rtcm

import "github.com/bramburn/rtkbridge/pkg/rtkbridge/geodesy"

// StationPosition is the decoded, geodesy-converted result of a 1005
// message: the ECEF reference point and its geodetic equivalent.
type StationPosition struct {
	StationID int
	X, Y, Z   float64
	LatDeg    float64
	LonDeg    float64
	HeightM   float64
}

// DecodeStation1005 reads the three signed 38-bit ECEF coordinates from a
// 1005 payload at bit offsets 34, 74, 114 (measured from the start of the
// payload, which opens with the 12-bit message type and 12-bit station id),
// scales each by 0.0001 to meters, and converts to geodetic via the WGS-84
// closed form.
func DecodeStation1005(payload []byte) StationPosition {
	stationID := int(getBitsU(payload, 12, 12))

	x := float64(getBitsS(payload, 34, 38)) * 0.0001
	y := float64(getBitsS(payload, 74, 38)) * 0.0001
	z := float64(getBitsS(payload, 114, 38)) * 0.0001

	lat, lon, h := geodesy.ECEFToGeodetic(x, y, z)

	return StationPosition{
		StationID: stationID,
		X:         x,
		Y:         y,
		Z:         z,
		LatDeg:    lat,
		LonDeg:    lon,
		HeightM:   h,
	}
}

// getBitsU reads an n-bit (n<=64) unsigned integer starting at bit
// position pos (0 = MSB of the first byte), big-endian bit order as used
// throughout RTCM-3.
func getBitsU(buf []byte, pos, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		bytePos := (pos + i) / 8
		bitPos := 7 - (pos+i)%8
		var bit uint64
		if bytePos < len(buf) {
			bit = uint64((buf[bytePos] >> bitPos) & 1)
		}
		v = (v << 1) | bit
	}
	return v
}

// getBitsS reads an n-bit two's-complement signed integer starting at bit
// position pos.
func getBitsS(buf []byte, pos, n int) int64 {
	v := getBitsU(buf, pos, n)
	signBit := uint64(1) << (n - 1)
	if v&signBit != 0 {
		return int64(v) - int64(signBit<<1)
	}
	return int64(v)
}
