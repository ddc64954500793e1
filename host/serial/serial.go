// Package serial carries RSCP frames over a serial port.
package serial

import (
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Mock serial (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the UART bridge to the panel
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int

	// Tick is how long WaitForReadable blocks at most
	Tick time.Duration
}

// DefaultConfig returns the settings used by the panel's USB-UART bridge
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
		Tick:        time.Millisecond,
	}
}
