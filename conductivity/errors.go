package conductivity

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress          = errors.New("ec: i2c address out of range [1, 127]")
	ErrNoReading               = errors.New("ec: no conductivity reading (raw count is zero)")
	ErrTemperatureDisconnected = errors.New("ec: temperature sensor disconnected")
)

// TransportError reports a failed bus transfer. It is never retried.
type TransportError struct {
	Op       string
	Address  byte
	Register byte
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ec: %s (addr %#02x, reg %d): %v", e.Op, e.Address, e.Register, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
