package serialport

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortDetail describes one enumerated serial port, USB identity included
// when known.
type PortDetail struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Product string
}

// ListPorts enumerates serial ports available on the host, with USB
// identity when the platform can report it. Operational convenience for
// picking serial.port (§6); not part of the data-path pipeline and
// carries no concurrency obligations of its own.
func ListPorts() ([]PortDetail, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: list ports: %w", err)
	}

	out := make([]PortDetail, 0, len(details))
	for _, d := range details {
		out = append(out, PortDetail{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Product: d.Product,
		})
	}
	return out, nil
}
