package geodesy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECEFToGeodeticStationCoordinates(t *testing.T) {
	// Seed scenario: a 1005 frame with this ECEF decodes to roughly
	// 39.90N, 116.40E (Beijing area); on WGS-84 the ellipsoidal height of
	// this triple is about -513.7m.
	lat, lon, h := ECEFToGeodetic(-2177800, 4388300, 4069700)

	assert.InDelta(t, 39.90, lat, 0.05)
	assert.InDelta(t, 116.40, lon, 0.05)
	assert.InDelta(t, -513.7, h, 5.0)
}

func TestRoundTripWithinOneCentimetre(t *testing.T) {
	cases := []struct {
		lat, lon, h float64
	}{
		{0, 0, 0},
		{48.1173, 11.51667, 545.4},
		{-33.9, 151.2, 100},
		{84.9, -179.5, 9000},
		{-84.9, 0.1, -10},
	}

	for _, c := range cases {
		x, y, z := GeodeticToECEF(c.lat, c.lon, c.h)
		lat2, lon2, h2 := ECEFToGeodetic(x, y, z)

		require.Less(t, haversineMeters(c.lat, c.lon, lat2, lon2), 0.01)
		assert.InDelta(t, c.h, h2, 0.01)
	}
}

// haversineMeters approximates surface distance for the tiny deltas the
// round-trip test expects; adequate at the centimetre scale asserted here.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	dLat := (lat2 - lat1) * deg2rad
	dLon := (lon2 - lon1) * deg2rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*deg2rad)*math.Cos(lat2*deg2rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}
