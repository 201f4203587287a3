package i2c

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gi2c "gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/ecprobe"
	"github.com/mklimuk/ecprobe/snsctx"
)

// DefaultNanoPiBus is the I2C bus routed to the header of a NanoPi NEO.
const DefaultNanoPiBus = 2

var _ ecprobe.I2CBus = &NanoPiBus{}

// NanoPiBus is an ecprobe.I2CBus on top of the gobot NanoPi NEO adaptor. A
// gobot driver is started lazily for every address talked to.
type NanoPiBus struct {
	mx      sync.Mutex
	adaptor *nanopi.Adaptor
	busNr   int
	drivers map[byte]*gi2c.GenericDriver
}

func NewNanoPiBus(busNr int) (*NanoPiBus, error) {
	npi := nanopi.NewNeoAdaptor()
	if err := npi.I2cBusAdaptor.Connect(); err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	return &NanoPiBus{
		adaptor: npi,
		busNr:   busNr,
		drivers: make(map[byte]*gi2c.GenericDriver),
	}, nil
}

func (b *NanoPiBus) driver(address byte) (*gi2c.GenericDriver, error) {
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := gi2c.NewGenericDriver(b.adaptor, "ecprobe", int(address), func(c gi2c.Config) {
		c.SetBus(b.busNr)
	})
	if err := d.Start(); err != nil {
		return nil, fmt.Errorf("driver start error (addr %#x): %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

func (b *NanoPiBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	if err := d.Read(buffer); err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	snsctx.Dump(ctx, "nanopi read", address, buffer)
	return nil
}

func (b *NanoPiBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	snsctx.Dump(ctx, "nanopi write", address, buffer)
	if err := d.Write(buffer); err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *NanoPiBus) Release(ctx context.Context) error {
	return nil
}

// Close halts every started driver and finalizes the adaptor.
func (b *NanoPiBus) Close() error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var errs []error
	for address, d := range b.drivers {
		if err := d.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("driver halt error (addr %#x): %w", address, err))
		}
		delete(b.drivers, address)
	}
	if err := b.adaptor.I2cBusAdaptor.Finalize(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
