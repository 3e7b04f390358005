package nmea

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/checksum"
)

// ErrMalformed is returned by the coordinate, time and date field helpers
// when a field is empty or too short. Field-level failures are tolerated,
// not fatal: a field that fails to parse keeps the value it already had in
// the rolling fix (zero until a sentence first sets it), except that an
// unparsable GGA quality digit becomes QualityInvalid.
var ErrMalformed = fmt.Errorf("nmea: malformed field")

// Handler receives the raw comma-split field vector of a dispatched
// sentence plus the fix produced from it, and may mutate the fix before
// the mediator forwards it. Returning a non-nil error only logs; it never
// tears down the parser.
type Handler func(fields []string, fix *Fix) error

// Handlers is the fixed set of sentence callbacks, one per supported
// type, per the design notes' preference for an explicit struct over a
// dynamic key->closure table.
type Handlers struct {
	GGA Handler
	RMC Handler
	GLL Handler
}

// Parser turns a byte stream into Fix records. It owns a rolling fix: RMC
// merges velocity/time into it, GGA overwrites position/quality, GLL sets
// position and quality from status.
type Parser struct {
	Enabled  map[string]bool
	Handlers Handlers
	Logger   logrus.FieldLogger

	framer  Framer
	rolling Fix

	Errors int
}

// NewParser returns a parser with all three sentence types enabled, the
// spec's default.
func NewParser() *Parser {
	return &Parser{
		Enabled: map[string]bool{"GGA": true, "RMC": true, "GLL": true},
		Logger:  logrus.StandardLogger(),
	}
}

// Feed submits newly received bytes and dispatches every complete
// sentence found. It returns the last fix produced, if any — most callers
// use the Handlers instead of this return value.
func (p *Parser) Feed(data []byte) *Fix {
	lines, overrun := p.framer.Feed(data)
	if overrun {
		p.log().Warn("nmea: accumulator overrun, truncated to trailing buffer")
	}

	var last *Fix
	for _, line := range lines {
		if fix := p.dispatch(line); fix != nil {
			last = fix
		}
	}
	return last
}

func (p *Parser) log() logrus.FieldLogger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

func (p *Parser) dispatch(sentence string) *Fix {
	star := strings.IndexByte(sentence, '*')
	if star < 0 || star+3 > len(sentence) || sentence[0] != '$' {
		p.Errors++
		p.log().WithField("sentence", sentence).Debug("nmea: malformed, no checksum field")
		return nil
	}

	body := sentence[1:star]
	want := sentence[star+1 : star+3]
	got := checksum.XOR8Hex([]byte(body))
	if !strings.EqualFold(want, got) {
		p.Errors++
		p.log().WithField("sentence", sentence).Debug("nmea: checksum mismatch")
		return nil
	}

	fields := strings.Split(body, ",")
	if len(fields[0]) < 3 {
		p.Errors++
		return nil
	}
	sentType := fields[0][len(fields[0])-3:]

	if !p.Enabled[sentType] {
		return nil
	}

	switch sentType {
	case "GGA":
		return p.handleGGA(fields)
	case "RMC":
		return p.handleRMC(fields)
	case "GLL":
		return p.handleGLL(fields)
	default:
		return nil
	}
}

func (p *Parser) handleGGA(fields []string) *Fix {
	if len(fields) < 15 {
		return nil
	}

	fix := p.rolling
	fix.Kind = KindRover

	if t, err := parseTimeOfDay(fields[1]); err == nil {
		fix.Timestamp = mergeDate(t)
	}
	if lat, err := parseDMM(fields[2], fields[3] == "S"); err == nil {
		fix.Latitude = lat
	}
	if lon, err := parseDMM(fields[4], fields[5] == "W"); err == nil {
		fix.Longitude = lon
	}
	if q, err := strconv.Atoi(fields[6]); err == nil {
		fix.Quality = QualityFromInt(q)
	} else {
		fix.Quality = QualityInvalid
	}
	if sats, err := strconv.Atoi(fields[7]); err == nil {
		fix.Satellites = sats
	}
	if hdop, err := strconv.ParseFloat(fields[8], 64); err == nil {
		fix.HDOP = hdop
	}
	if alt, err := strconv.ParseFloat(fields[9], 64); err == nil {
		fix.Altitude = alt
	}
	if age, err := strconv.ParseFloat(fields[13], 64); err == nil {
		fix.CorrAgeSec = age
	}
	if fields[14] != "" {
		if id, err := strconv.Atoi(fields[14]); err == nil {
			fix.StationID = id
		}
	}

	p.rolling = fix
	result := fix
	if p.Handlers.GGA != nil {
		if err := p.Handlers.GGA(fields, &result); err != nil {
			p.log().WithError(err).Debug("nmea: GGA handler error")
		}
	}
	return &result
}

func (p *Parser) handleRMC(fields []string) *Fix {
	if len(fields) < 12 {
		return nil
	}
	if fields[2] != "A" {
		result := p.rolling
		if p.Handlers.RMC != nil {
			_ = p.Handlers.RMC(fields, &result)
		}
		return &result
	}

	fix := p.rolling
	fix.Kind = KindRover

	if t, err := parseTimeOfDay(fields[1]); err == nil {
		if d, err := parseDDMMYY(fields[9]); err == nil {
			fix.Timestamp = time.Date(d.Year(), d.Month(), d.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
		}
	}
	if lat, err := parseDMM(fields[3], fields[4] == "S"); err == nil {
		fix.Latitude = lat
	}
	if lon, err := parseDMM(fields[5], fields[6] == "W"); err == nil {
		fix.Longitude = lon
	}
	if knots, err := strconv.ParseFloat(fields[7], 64); err == nil {
		fix.SpeedKmh = knots * 1.852
	}
	if course, err := strconv.ParseFloat(fields[8], 64); err == nil {
		fix.CourseDeg = course
	}

	p.rolling = fix
	result := fix
	if p.Handlers.RMC != nil {
		if err := p.Handlers.RMC(fields, &result); err != nil {
			p.log().WithError(err).Debug("nmea: RMC handler error")
		}
	}
	return &result
}

func (p *Parser) handleGLL(fields []string) *Fix {
	if len(fields) < 7 {
		return nil
	}

	fix := p.rolling
	fix.Kind = KindRover

	if lat, err := parseDMM(fields[1], fields[2] == "S"); err == nil {
		fix.Latitude = lat
	}
	if lon, err := parseDMM(fields[3], fields[4] == "W"); err == nil {
		fix.Longitude = lon
	}
	if t, err := parseTimeOfDay(fields[5]); err == nil {
		fix.Timestamp = mergeDate(t)
	}
	switch fields[6] {
	case "A":
		fix.Quality = QualityGPS
	case "V":
		fix.Quality = QualityInvalid
	}

	p.rolling = fix
	result := fix
	if p.Handlers.GLL != nil {
		if err := p.Handlers.GLL(fields, &result); err != nil {
			p.log().WithError(err).Debug("nmea: GLL handler error")
		}
	}
	return &result
}

// parseDMM converts a ddmm.mmmm (or dddmm.mmmm) coordinate field to
// decimal degrees, per §4.3: int(v/100) + (v - 100*int(v/100))/60.
func parseDMM(field string, negative bool) (float64, error) {
	if field == "" {
		return 0, ErrMalformed
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	deg := float64(int(v / 100))
	minutes := v - 100*deg
	dec := deg + minutes/60
	if negative {
		dec = -dec
	}
	return dec, nil
}

// parseTimeOfDay parses hhmmss[.ss] into a time.Time anchored at the zero
// date; callers combine it with a date field or today's date.
func parseTimeOfDay(field string) (time.Time, error) {
	if len(field) < 6 {
		return time.Time{}, ErrMalformed
	}
	hh, err := strconv.Atoi(field[0:2])
	if err != nil {
		return time.Time{}, err
	}
	mm, err := strconv.Atoi(field[2:4])
	if err != nil {
		return time.Time{}, err
	}
	secFloat, err := strconv.ParseFloat(field[4:], 64)
	if err != nil {
		return time.Time{}, err
	}
	sec := int(secFloat)
	nsec := int((secFloat - float64(sec)) * 1e9)
	return time.Date(0, 1, 1, hh, mm, sec, nsec, time.UTC), nil
}

// parseDDMMYY parses RMC's ddmmyy date field. NMEA carries only a
// two-digit year; the conventional pivot (<80 -> 2000s, >=80 -> 1900s)
// is what every receiver from this era assumes.
func parseDDMMYY(field string) (time.Time, error) {
	if len(field) != 6 {
		return time.Time{}, ErrMalformed
	}
	dd, err := strconv.Atoi(field[0:2])
	if err != nil {
		return time.Time{}, err
	}
	mo, err := strconv.Atoi(field[2:4])
	if err != nil {
		return time.Time{}, err
	}
	yy, err := strconv.Atoi(field[4:6])
	if err != nil {
		return time.Time{}, err
	}
	year := 2000 + yy
	if yy >= 80 {
		year = 1900 + yy
	}
	return time.Date(year, time.Month(mo), dd, 0, 0, 0, 0, time.UTC), nil
}

// mergeDate stamps a parsed time-of-day onto today's UTC date, matching
// §4.3's "time hhmmss[.ss] -> today's UTC at that time-of-day" for GGA/GLL,
// which carry no date field of their own.
func mergeDate(tod time.Time) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), tod.Nanosecond(), time.UTC)
}
