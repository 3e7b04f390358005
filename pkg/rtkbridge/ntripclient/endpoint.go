package ntripclient

// Endpoint is the surface the mediator drives, satisfied by both Client
// and MockClient so the mediator can be wired to either without knowing
// which.
type Endpoint interface {
	Connect() error
	Close() error
	Connected() bool
	WriteGGA(line string) error
	SetHandler(h ByteHandler)
}

// SetHandler lets the mediator register its byte callback after
// construction, mirroring the serial endpoint's field-style wiring.
func (c *Client) SetHandler(h ByteHandler) { c.Handler = h }
