package ntripclient

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bramburn/rtkbridge/pkg/rtkbridge/checksum"
)

// mockSendInterval matches §4.6's "every 50ms" synthetic frame cadence.
const mockSendInterval = 50 * time.Millisecond

// MockClient satisfies Endpoint but skips the socket entirely: its
// receiver task synthesizes one CRC-valid RTCM frame every 50ms, for
// exercising the mediator and the RTCM decode path without a real caster.
// Grounded on cmd/rtk2go-test/receiver.go's TOP708Receiver simulation
// pattern.
type MockClient struct {
	Logger  logrus.FieldLogger
	Handler ByteHandler

	mu        sync.Mutex
	connected bool
	stop      chan struct{}
	done      chan struct{}

	ggaWrites []string
}

// NewMockClient returns an unstarted mock endpoint.
func NewMockClient() *MockClient {
	return &MockClient{Logger: logrus.StandardLogger()}
}

func (m *MockClient) SetHandler(h ByteHandler) { m.Handler = h }

// Connect starts the synthetic sender task. There is no real socket to
// fail to dial; the only error is ErrAlreadyConnected when the sender is
// already running.
func (m *MockClient) Connect() error {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.connected = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.sendLoop()
	return nil
}

func (m *MockClient) sendLoop() {
	defer close(m.done)

	ticker := time.NewTicker(mockSendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			frame := syntheticFrame()
			m.mu.Lock()
			handler := m.Handler
			m.mu.Unlock()
			if handler != nil {
				handler(frame)
			}
		}
	}
}

// syntheticFrame builds a CRC-valid RTCM frame: header 0xD3, payload
// length 4, an arbitrary payload (disambiguated per call via a uuid so
// repeated test runs are distinguishable in logs), trailing CRC-24Q.
func syntheticFrame() []byte {
	tag := uuid.New()
	payload := []byte{tag[0], tag[1], tag[2], tag[3]}

	header := []byte{0xD3, 0x00, 0x04}
	body := append(append([]byte{}, header...), payload...)
	crc := checksum.CRC24Q(body)
	return append(body, byte(crc>>16), byte(crc>>8), byte(crc))
}

// WriteGGA records the uplinked GGA text; the mock has nowhere real to
// send it but still honours the Endpoint contract and its 2s keep-alive
// observability for tests.
func (m *MockClient) WriteGGA(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.ggaWrites = append(m.ggaWrites, line)
	return nil
}

// GGAWrites returns every GGA line written so far, for test assertions.
func (m *MockClient) GGAWrites() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.ggaWrites...)
}

func (m *MockClient) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	stop := m.stop
	done := m.done
	m.connected = false
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}
