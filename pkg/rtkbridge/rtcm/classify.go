package rtcm

// Message type classification, kept for the statistics log's benefit
// only — the core decodes nothing beyond 1005, it only names the ranges,
// grounded on the teacher's pkg/gnssgo/rtcm package doc comment.
const (
	TypeStationCoordinates = 1005
)

// Class names the broad family a message type belongs to, for a more
// legible statistics log than raw type numbers.
func Class(msgType int) string {
	switch {
	case msgType == 1005 || msgType == 1006 || msgType == 1007 || msgType == 1008:
		return "station-info"
	case msgType >= 1019 && msgType <= 1046:
		return "ephemeris"
	case msgType >= 1071 && msgType <= 1127:
		return "msm"
	case msgType >= 1057 && msgType <= 1068:
		return "ssr"
	case msgType >= 1001 && msgType <= 1004:
		return "legacy-obs-gps"
	case msgType >= 1009 && msgType <= 1012:
		return "legacy-obs-glonass"
	default:
		return "other"
	}
}
