// Package ntripclient implements the raw-TCP NTRIP client endpoint: the
// HTTP-1.1-style handshake, a steady-state receive loop, and GGA uplink.
package ntripclient

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sentinel errors, mirroring the teacher's stream package's ErrNTRIP*
// block (§7's HandshakeRefused/IoFatal kinds).
var (
	ErrAlreadyConnected = errors.New("ntripclient: already connected")
	ErrNotConnected     = errors.New("ntripclient: not connected")
	ErrHandshakeRefused = errors.New("ntripclient: handshake refused")
)

const (
	connectTimeout  = 10 * time.Second
	recvTimeout     = 2 * time.Second
	handshakeReadSz = 1024
	recvBufferSz    = 4096
)

// Config carries the caster connection parameters.
type Config struct {
	Host       string
	Port       int
	Mountpoint string
	Username   string
	Password   string
}

// ByteHandler receives bytes as the receive loop reads them off the
// socket.
type ByteHandler func(data []byte)

// Client is the NTRIP client endpoint.
type Client struct {
	Config  Config
	Logger  logrus.FieldLogger
	Handler ByteHandler

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	stop      chan struct{}
	done      chan struct{}
}

// NewClient returns an unconnected client for cfg.
func NewClient(cfg Config) *Client {
	return &Client{Config: cfg, Logger: logrus.StandardLogger()}
}

// Connect dials the caster, performs the handshake, and on success spawns
// the receive loop. §4.6.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", c.Config.Host, c.Config.Port)
	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("ntripclient: dial %s: %w", addr, err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.receiveLoop()
	c.log().WithField("addr", addr).Info("ntripclient: connected")
	return nil
}

func (c *Client) handshake(conn net.Conn) error {
	var req bytes.Buffer
	fmt.Fprintf(&req, "GET /%s HTTP/1.1\r\n", c.Config.Mountpoint)
	fmt.Fprintf(&req, "Host: %s\r\n", c.Config.Host)
	req.WriteString("User-Agent: RTK-Client/1.0\r\n")
	req.WriteString("Accept: */*\r\n")
	req.WriteString("Connection: close\r\n")
	if c.Config.Username != "" || c.Config.Password != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(c.Config.Username + ":" + c.Config.Password))
		fmt.Fprintf(&req, "Authorization: Basic %s\r\n", cred)
	}
	req.WriteString("\r\n")

	conn.SetWriteDeadline(time.Now().Add(connectTimeout))
	if _, err := conn.Write(req.Bytes()); err != nil {
		return fmt.Errorf("ntripclient: send request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(connectTimeout))
	buf := make([]byte, handshakeReadSz)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return fmt.Errorf("ntripclient: read handshake response: %w", err)
	}

	if !strings.Contains(string(buf[:n]), "200 OK") {
		return ErrHandshakeRefused
	}
	return nil
}

func (c *Client) receiveLoop() {
	defer close(c.done)

	buf := make([]byte, recvBufferSz)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(recvTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			c.log().WithError(err).Info("ntripclient: receive loop ended")
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			return
		}
		if n > 0 && c.Handler != nil {
			chunk := append([]byte{}, buf[:n]...)
			c.Handler(chunk)
		}
	}
}

// WriteGGA appends \r\n to line and writes it to the socket.
func (c *Client) WriteGGA(line string) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(recvTimeout))
	_, err := conn.Write([]byte(line + "\r\n"))
	if err != nil {
		return fmt.Errorf("ntripclient: write GGA: %w", err)
	}
	return nil
}

// Connected reports whether the steady-state loop believes the socket is
// still up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close stops the receive loop (2-second join bound, §5) and closes the
// socket. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.connected {
		// The receive loop may already have ended on EOF; its socket is
		// still open until closed here.
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			return conn.Close()
		}
		return nil
	}
	stop := c.stop
	done := c.done
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			c.log().Warn("ntripclient: receive loop did not join within bound, abandoning")
		}
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) log() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}
