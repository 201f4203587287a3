// Package ecprobe defines the transport contract shared by the probe driver
// and the bus implementations (periph, gobot, MCP2221 bridge, simulator).
package ecprobe

import (
	"context"
	"fmt"
)

// DefaultAddress is the factory I2C address of the conductivity probe.
const DefaultAddress = 0x3C

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is everything the probe driver needs from a transport. A register
// select is a one byte write, a register write is the register followed by
// its payload and reads are issued one byte at a time.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}
