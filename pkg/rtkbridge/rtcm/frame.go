// Package rtcm implements the RTCM-3 byte-stream framer and a decoder for
// the single payload type this bridge cares about: 1005, the stationary
// antenna reference point.
package rtcm

import (
	"sync"
	"sync/atomic"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/checksum"
)

const preamble = 0xD3

// Frame is a validated RTCM-3 frame: preamble + length + payload + CRC-24Q,
// already checked.
type Frame struct {
	Type    int
	Length  int
	Payload []byte
	Raw     []byte
}

// Framer reframes an arbitrary byte stream into validated Frames,
// resyncing past any false preamble byte (§4.4, §8).
type Framer struct {
	buf []byte
}

// Feed appends data to the accumulator and extracts every complete,
// CRC-valid frame currently available. It returns frames in wire order.
func (f *Framer) Feed(data []byte) []Frame {
	f.buf = append(f.buf, data...)

	var frames []Frame
	for {
		idx := indexByte(f.buf, preamble)
		if idx < 0 {
			f.buf = nil
			break
		}
		if idx > 0 {
			f.buf = f.buf[idx:]
		}

		if len(f.buf) < 6 {
			break
		}

		length := (int(f.buf[1]&0x03) << 8) | int(f.buf[2])
		total := length + 6
		if len(f.buf) < total {
			break
		}

		candidate := f.buf[:total]
		computed := checksum.CRC24Q(candidate[:length+3])
		trailing := uint32(candidate[length+3])<<16 | uint32(candidate[length+4])<<8 | uint32(candidate[length+5])

		if computed != trailing {
			// Resync: advance past this false preamble by one byte and
			// retry from the next possible sync point.
			f.buf = f.buf[1:]
			continue
		}

		payload := append([]byte{}, candidate[3:3+length]...)
		msgType := extractType(payload)

		frames = append(frames, Frame{
			Type:    msgType,
			Length:  length,
			Payload: payload,
			Raw:     append([]byte{}, candidate...),
		})

		f.buf = f.buf[total:]
	}

	return frames
}

// extractType reads the message type from the top 12 bits of the
// payload's first 16 bits.
func extractType(payload []byte) int {
	if len(payload) < 2 {
		return -1
	}
	u16 := uint16(payload[0])<<8 | uint16(payload[1])
	return int(u16 >> 4)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// Stats is a type->count table, incremented by the owning goroutine
// (typically the NTRIP receive task) and read by the mediator's
// supervisor. The map structure itself is guarded by mu since Go maps
// tolerate no concurrent reader/writer; each individual counter is an
// atomic int64 so the supervisor never observes a torn value (§5).
type Stats struct {
	mu     sync.RWMutex
	counts map[int]*int64
}

// Increment bumps the counter for msgType by one.
func (s *Stats) Increment(msgType int) {
	s.mu.RLock()
	c, ok := s.counts[msgType]
	s.mu.RUnlock()
	if !ok {
		s.mu.Lock()
		if s.counts == nil {
			s.counts = make(map[int]*int64)
		}
		if c, ok = s.counts[msgType]; !ok {
			var z int64
			c = &z
			s.counts[msgType] = c
		}
		s.mu.Unlock()
	}
	atomic.AddInt64(c, 1)
}

// Snapshot returns a point-in-time copy of the counter table.
func (s *Stats) Snapshot() map[int]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = atomic.LoadInt64(v)
	}
	return out
}
