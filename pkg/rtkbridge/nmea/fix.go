package nmea

import "time"

// Quality is the NMEA fix-quality tag carried by GGA (and derived by GLL).
type Quality int

const (
	QualityInvalid Quality = iota
	QualityGPS
	QualityDGPS
	QualityPPS
	QualityRTKFixed
	QualityRTKFloat
	QualityEstimated
	QualityManual
	QualitySimulation
)

// String names a quality tag the way the receiver's own logs would.
func (q Quality) String() string {
	switch q {
	case QualityGPS:
		return "SINGLE"
	case QualityDGPS:
		return "DGPS"
	case QualityPPS:
		return "PPS"
	case QualityRTKFixed:
		return "FIX"
	case QualityRTKFloat:
		return "FLOAT"
	case QualityEstimated:
		return "ESTIMATED"
	case QualityManual:
		return "MANUAL"
	case QualitySimulation:
		return "SIMULATION"
	default:
		return "NONE"
	}
}

// QualityFromInt maps the raw GGA quality digit to a tag, collapsing any
// out-of-range value to invalid.
func QualityFromInt(v int) Quality {
	if v < int(QualityInvalid) || v > int(QualitySimulation) {
		return QualityInvalid
	}
	return Quality(v)
}

// Kind distinguishes a fix produced by the receiver (rover) from one
// decoded out of an RTCM-1005 base-station message.
type Kind int

const (
	KindRover Kind = iota
	KindBase
)

// Fix is the position record produced by the NMEA and RTCM decoders.
// Immutable once emitted; the parser mutates its own rolling copy during
// assembly, never a Fix already handed to a callback.
type Fix struct {
	Latitude    float64
	Longitude   float64
	Altitude    float64
	Quality     Quality
	Satellites  int
	HDOP        float64
	Timestamp   time.Time
	SpeedKmh    float64
	CourseDeg   float64
	CorrAgeSec  float64
	StationID   int
	Kind        Kind
	SystemOK    bool
	Extra       map[string]string
}
