package mediator

import "github.com/bramburn/rtkbridge/pkg/rtkbridge/nmea"

// Sink is the position-sink boundary (§4.8): a single operation, called
// synchronously from whichever task produced the fix. Implementations
// that need queuing must buffer internally — the call must not block the
// mediator.
type Sink interface {
	Accept(fix nmea.Fix)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(fix nmea.Fix)

func (f SinkFunc) Accept(fix nmea.Fix) { f(fix) }
