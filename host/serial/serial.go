package serial

import (
	"errors"
	"io"
)

// DefaultBaud matches the bluepill UART. USB CDC ports ignore it.
const DefaultBaud = 250000

var ErrNoDevice = errors.New("serial device not set")

// Port is the byte stream to the firmware. Tests substitute an in-memory
// pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything still queued in the driver
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	Baud int

	// ReadTimeout bounds each Read so the link reader can notice Close
	ReadTimeout int // milliseconds
}

// DefaultConfig returns the settings the firmware targets use
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 50,
	}
}
