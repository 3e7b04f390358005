package nmea

// Framer accumulates raw receiver bytes into complete NMEA sentences.
// Grounded on the teacher's MonitorNMEA accumulation loop
// (hardware/topgnss/top708), generalized to the spec's newline framing and
// overrun rule.
type Framer struct {
	buf []byte
}

const (
	maxAccumulator   = 10000
	truncatedKeepLen = 5000
)

// Feed appends data to the accumulator and returns every complete,
// whitespace-trimmed line extracted so far. Lines that don't start with
// '$' are discarded. If the accumulator grows past maxAccumulator bytes
// without ever seeing a newline, it is truncated to its trailing
// truncatedKeepLen bytes.
func (f *Framer) Feed(data []byte) (lines []string, overrun bool) {
	f.buf = append(f.buf, data...)

	for {
		idx := indexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		line := trimSpace(f.buf[:idx])
		f.buf = f.buf[idx+1:]
		if len(line) > 0 && line[0] == '$' {
			lines = append(lines, string(line))
		}
	}

	if len(f.buf) > maxAccumulator {
		f.buf = append([]byte{}, f.buf[len(f.buf)-truncatedKeepLen:]...)
		overrun = true
	}

	return lines, overrun
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
