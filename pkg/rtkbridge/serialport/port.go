// Package serialport is the serial endpoint: open a port at 8-N-1, run a
// reader task that fans incoming bytes out to a callback, and offer a
// flush-per-call write.
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// ErrNotConnected is returned by Write when the port hasn't been opened,
// or has been explicitly closed.
var ErrNotConnected = errors.New("serialport: not connected")

// ByteHandler receives bytes as they arrive off the wire.
type ByteHandler func(data []byte)

// Port wraps a go.bug.st/serial port with the read-loop/connected-flag
// discipline the spec requires (§4.5): on read failure the reader stops
// but the connected flag is left true, distinguishing "transiently
// unavailable" from an explicit Close.
type Port struct {
	Name     string
	BaudRate int
	Timeout  time.Duration
	Logger   logrus.FieldLogger
	Handler  ByteHandler

	mu        sync.Mutex
	port      serial.Port
	connected bool
	stop      chan struct{}
	done      chan struct{}
}

// DefaultBaudRate and DefaultReadTimeout match §6's external interface
// defaults.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = time.Second
)

// NewPort returns a Port configured with the spec's defaults; callers
// override Name/BaudRate/Handler before calling Open.
func NewPort(name string) *Port {
	return &Port{
		Name:     name,
		BaudRate: DefaultBaudRate,
		Timeout:  DefaultReadTimeout,
		Logger:   logrus.StandardLogger(),
	}
}

// Open opens the port 8-N-1 at BaudRate and spawns the reader task. On
// open failure it returns the error without spawning anything (§4.5).
func (p *Port) Open() error {
	mode := &serial.Mode{
		BaudRate: p.BaudRate,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}

	sp, err := serial.Open(p.Name, mode)
	if err != nil {
		return fmt.Errorf("serialport: open %s: %w", p.Name, err)
	}
	if err := sp.SetReadTimeout(p.Timeout); err != nil {
		sp.Close()
		return fmt.Errorf("serialport: set read timeout: %w", err)
	}

	p.mu.Lock()
	p.port = sp
	p.connected = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.mu.Unlock()

	go p.readLoop()
	return nil
}

func (p *Port) readLoop() {
	defer close(p.done)

	buf := make([]byte, 4096)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		p.mu.Lock()
		sp := p.port
		p.mu.Unlock()
		if sp == nil {
			return
		}

		n, err := sp.Read(buf)
		if err != nil {
			p.log().WithError(err).Warn("serialport: read error, reader terminating")
			return
		}
		if n > 0 && p.Handler != nil {
			chunk := append([]byte{}, buf[:n]...)
			p.Handler(chunk)
		}
	}
}

// Write sends data and flushes immediately.
func (p *Port) Write(data []byte) error {
	p.mu.Lock()
	sp := p.port
	connected := p.connected
	p.mu.Unlock()

	if !connected || sp == nil {
		return ErrNotConnected
	}

	if _, err := sp.Write(data); err != nil {
		return fmt.Errorf("serialport: write: %w", err)
	}
	return sp.Drain()
}

// Connected reports whether the port is open from the caller's
// perspective; it stays true across transient read errors until Close is
// called explicitly.
func (p *Port) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Close stops the reader task (best-effort, 2-second join bound per §5)
// and closes the underlying port.
func (p *Port) Close() error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil
	}
	stop := p.stop
	done := p.done
	sp := p.port
	p.connected = false
	p.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			p.log().Warn("serialport: reader task did not join within bound, abandoning")
		}
	}
	if sp != nil {
		return sp.Close()
	}
	return nil
}

func (p *Port) log() logrus.FieldLogger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}
