// Package mediator wires the checksum, geodesy, nmea, rtcm, serialport,
// and ntripclient packages together into the bridge described by §4.7:
// one NMEA parser, one RTCM parser, the serial and NTRIP endpoints, a
// current-fix cell, a statistics table, a last-GGA-timestamp cell, and a
// 1Hz supervisor task.
package mediator

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/checksum"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/nmea"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/ntripclient"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/rtcm"
	"github.com/bramburn/rtkbridge/pkg/rtkbridge/serialport"
)

// defaultGGA is the compiled-in keep-alive sentence: a Beijing-origin fix
// (roughly 30.22N, 120.36E) with quality 1, per §6.
var defaultGGA = buildDefaultGGA()

func buildDefaultGGA() string {
	body := "GPGGA,000000.00,3013.2000,N,12021.6000,E,1,08,0.9,100.0,M,0.0,M,,"
	return "$" + body + "*" + checksum.XOR8Hex([]byte(body))
}

// Mediator owns the full pipeline for one session.
type Mediator struct {
	cfg    Config
	logger logrus.FieldLogger
	sink   Sink

	serial *serialport.Port
	ntrip  ntripclient.Endpoint

	parser *nmea.Parser
	framer rtcm.Framer
	stats  rtcm.Stats

	currentFixMu sync.RWMutex
	currentFix   nmea.Fix

	lastGGAUnixNano int64 // atomic

	keepaliveWindow time.Duration
	statTicks       int64 // atomic, incremented once per supervisor tick

	stop chan struct{}
	done chan struct{}
}

// New builds a Mediator for cfg. It does not open any endpoint; call
// Start for that.
func New(cfg Config, sink Sink, logger logrus.FieldLogger) *Mediator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	sessionID := uuid.New().String()
	sessionLogger := logger.WithField("session_id", sessionID)

	m := &Mediator{
		cfg:             cfg,
		logger:          sessionLogger,
		sink:            sink,
		keepaliveWindow: time.Duration(cfg.KeepaliveSec * float64(time.Second)),
	}

	m.parser = &nmea.Parser{
		Enabled: cfg.enabledSet(),
		Logger:  sessionLogger,
	}
	m.parser.Handlers = nmea.Handlers{
		GGA: m.onGGA,
		RMC: m.onRMC,
	}

	m.serial = serialport.NewPort(cfg.SerialPort)
	m.serial.BaudRate = cfg.SerialBaudRate
	m.serial.Logger = sessionLogger
	m.serial.Handler = m.onSerialBytes

	if cfg.NTRIPMock {
		mc := ntripclient.NewMockClient()
		mc.Logger = sessionLogger
		m.ntrip = mc
	} else {
		c := ntripclient.NewClient(ntripclient.Config{
			Host:       cfg.NTRIPHost,
			Port:       cfg.NTRIPPort,
			Mountpoint: cfg.NTRIPMount,
			Username:   cfg.NTRIPUsername,
			Password:   cfg.NTRIPPassword,
		})
		c.Logger = sessionLogger
		m.ntrip = c
	}
	m.ntrip.SetHandler(m.onNTRIPBytes)

	return m
}

// Start connects serial, then NTRIP, then spawns the supervisor (§4.7's
// start order). Any failure aborts start; already-connected endpoints
// remain open until an explicit Stop.
func (m *Mediator) Start() error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	if err := m.serial.Open(); err != nil {
		return fmt.Errorf("mediator: start: %w", err)
	}

	if err := m.ntrip.Connect(); err != nil {
		return fmt.Errorf("mediator: start: %w", err)
	}

	// Seed the keep-alive clock at start time so the supervisor's T_keep
	// window is measured from connection, not from the Unix epoch.
	atomic.StoreInt64(&m.lastGGAUnixNano, time.Now().UnixNano())

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.supervise()

	m.logger.Info("mediator: started")
	return nil
}

// Stop joins the supervisor and closes endpoints in reverse start order.
// Idempotent.
func (m *Mediator) Stop() error {
	if m.stop != nil {
		select {
		case <-m.stop:
			// already stopped
		default:
			close(m.stop)
		}
		if m.done != nil {
			select {
			case <-m.done:
			case <-time.After(2 * time.Second):
				m.logger.Warn("mediator: supervisor did not join within bound, abandoning")
			}
		}
	}

	if err := m.ntrip.Close(); err != nil {
		m.logger.WithError(err).Warn("mediator: error closing ntrip endpoint")
	}
	if err := m.serial.Close(); err != nil {
		m.logger.WithError(err).Warn("mediator: error closing serial endpoint")
	}

	m.logger.Info("mediator: stopped")
	return nil
}

// CurrentFix returns a coherent snapshot of the current fix cell.
func (m *Mediator) CurrentFix() nmea.Fix {
	m.currentFixMu.RLock()
	defer m.currentFixMu.RUnlock()
	return m.currentFix
}

func (m *Mediator) setCurrentFix(fix nmea.Fix) {
	m.currentFixMu.Lock()
	m.currentFix = fix
	m.currentFixMu.Unlock()
}

// onSerialBytes is the serial reader task's sole entry into the NMEA
// parser (§5's per-resource ownership).
func (m *Mediator) onSerialBytes(data []byte) {
	m.parser.Feed(data)
}

// onGGA stamps the last-GGA timestamp on arrival regardless of quality
// (resolving §9's "last-GGA timestamp semantics" open question),
// forwards the fix to the sink, and uplinks either the receiver's own GGA
// or the compiled-in default depending on quality.
func (m *Mediator) onGGA(fields []string, fix *nmea.Fix) error {
	atomic.StoreInt64(&m.lastGGAUnixNano, time.Now().UnixNano())
	m.setCurrentFix(*fix)
	m.deliverRover(*fix)

	if !m.ntrip.Connected() {
		return nil
	}

	if fix.Quality != nmea.QualityInvalid {
		sentence := rebuildSentence(fields)
		if err := m.ntrip.WriteGGA(sentence); err != nil {
			m.logger.WithError(err).Warn("mediator: GGA uplink failed")
		}
	} else {
		if err := m.ntrip.WriteGGA(defaultGGA); err != nil {
			m.logger.WithError(err).Warn("mediator: default GGA uplink failed")
		}
	}
	return nil
}

// onRMC logs the sentence at debug level and copies the parser's merged
// rolling fix into the current-fix cell; it forwards nothing to the sink
// and uplinks nothing.
func (m *Mediator) onRMC(fields []string, fix *nmea.Fix) error {
	m.logger.WithField("fields", fields).Debug("mediator: RMC received")
	m.setCurrentFix(*fix)
	return nil
}

// deliverRover applies §4.8's rover-kind filter: invalid-quality rover
// fixes are dropped unless they carry system-status metadata.
func (m *Mediator) deliverRover(fix nmea.Fix) {
	if fix.Kind == nmea.KindRover && fix.Quality == nmea.QualityInvalid && !fix.SystemOK {
		return
	}
	if m.sink != nil {
		m.sink.Accept(fix)
	}
}

// onNTRIPBytes is the NTRIP receiver task's sole entry point. It forwards
// raw bytes to the serial endpoint first — correction passthrough must
// not wait on decoding — then feeds the same bytes to the RTCM parser.
func (m *Mediator) onNTRIPBytes(data []byte) {
	if err := m.serial.Write(data); err != nil {
		m.logger.WithError(err).Debug("mediator: correction passthrough write failed, dropping")
	}

	frames := m.framer.Feed(data)
	for _, f := range frames {
		m.stats.Increment(f.Type)

		if f.Type == rtcm.TypeStationCoordinates {
			pos := rtcm.DecodeStation1005(f.Payload)
			fix := nmea.Fix{
				Latitude:  pos.LatDeg,
				Longitude: pos.LonDeg,
				Altitude:  pos.HeightM,
				Quality:   nmea.QualityDGPS,
				StationID: pos.StationID,
				Kind:      nmea.KindBase,
				Timestamp: time.Now().UTC(),
			}
			m.setCurrentFix(fix)
			if m.sink != nil {
				m.sink.Accept(fix)
			}
		}
	}
}

// supervise runs the 1Hz tick: keep-alive GGA, reconnect-on-drop, and the
// once-per-10-tick statistics log. Driven by a tick counter rather than
// wall-clock modulo (§9's resolution of the statistics-boundary question).
func (m *Mediator) supervise() {
	defer close(m.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.superviseTick()
		}
	}
}

func (m *Mediator) superviseTick() {
	if !m.ntrip.Connected() {
		if err := m.ntrip.Connect(); err != nil {
			m.logger.WithError(err).Debug("mediator: ntrip reconnect attempt failed")
		} else {
			m.logger.Info("mediator: ntrip reconnected")
		}
	} else {
		last := atomic.LoadInt64(&m.lastGGAUnixNano)
		if time.Since(time.Unix(0, last)) > m.keepaliveWindow {
			if err := m.ntrip.WriteGGA(defaultGGA); err != nil {
				m.logger.WithError(err).Warn("mediator: keep-alive GGA failed")
			}
		}
	}

	ticks := atomic.AddInt64(&m.statTicks, 1)
	if ticks%10 == 0 {
		m.logStats()
	}
}

func (m *Mediator) logStats() {
	snap := m.stats.Snapshot()
	fields := logrus.Fields{}
	for msgType, count := range snap {
		fields[fmt.Sprintf("type_%d_%s", msgType, rtcm.Class(msgType))] = count
	}
	m.logger.WithFields(fields).Info("mediator: statistics")
}

// rebuildSentence reconstructs the comma-joined body the parser split
// apart and recomputes its checksum, yielding the "original comma-joined
// GGA" the spec asks the mediator to uplink verbatim.
func rebuildSentence(fields []string) string {
	body := strings.Join(fields, ",")
	return "$" + body + "*" + checksum.XOR8Hex([]byte(body))
}
