package conductivity

import (
	"context"
	"fmt"
	"log/slog"
)

func (p *Probe) ReadConfig(ctx context.Context) (ConfigFlags, error) {
	b, err := p.readByte(ctx, regConfig)
	return ConfigFlags(b), err
}

func (p *Probe) updateConfig(ctx context.Context, update func(ConfigFlags) ConfigFlags) error {
	flags, err := p.ReadConfig(ctx)
	if err != nil {
		return err
	}
	return p.writeByte(ctx, regConfig, byte(update(flags)))
}

func (p *Probe) UseTemperatureCompensation(ctx context.Context, enabled bool) error {
	return p.updateConfig(ctx, func(f ConfigFlags) ConfigFlags {
		return f.WithTemperatureCompensation(enabled)
	})
}

func (p *Probe) UsingTemperatureCompensation(ctx context.Context) (bool, error) {
	flags, err := p.ReadConfig(ctx)
	return flags.TemperatureCompensation(), err
}

func (p *Probe) UseDualPoint(ctx context.Context, enabled bool) error {
	return p.updateConfig(ctx, func(f ConfigFlags) ConfigFlags {
		return f.WithDualPoint(enabled)
	})
}

func (p *Probe) UsingDualPoint(ctx context.Context) (bool, error) {
	flags, err := p.ReadConfig(ctx)
	return flags.DualPoint(), err
}

// Version returns the hardware version register.
func (p *Probe) Version(ctx context.Context) (byte, error) {
	return p.readByte(ctx, regVersion)
}

func (p *Probe) FirmwareVersion(ctx context.Context) (byte, error) {
	return p.readByte(ctx, regFirmware)
}

// Connected reports whether a device answers with a plausible version.
func (p *Probe) Connected(ctx context.Context) (bool, error) {
	v, err := p.Version(ctx)
	if err != nil {
		return false, err
	}
	return v != versionDisconnected, nil
}

// Init checks the device is present and adapts the EC measurement time to
// its firmware generation.
func (p *Probe) Init(ctx context.Context) (bool, error) {
	v, err := p.Version(ctx)
	if err != nil {
		return false, err
	}
	if v == versionDisconnected {
		return false, nil
	}
	if v <= legacyFirmwareVersion && p.config.ECMeasureTime < legacyECMeasureTime {
		slog.DebugContext(ctx, "legacy device, extending EC measure time", "version", v)
		p.config.ECMeasureTime = legacyECMeasureTime
	}
	return true, nil
}

// SetI2CAddress moves the device to a new bus address. Subsequent
// operations of this Probe use the new address.
func (p *Probe) SetI2CAddress(ctx context.Context, address int) error {
	if address < 1 || address > 127 {
		return fmt.Errorf("%w: %d", ErrInvalidAddress, address)
	}
	if err := p.writeRegister(ctx, regSolution, float64(address)); err != nil {
		return err
	}
	if err := p.sendCommand(ctx, cmdI2CAddress); err != nil {
		return err
	}
	slog.InfoContext(ctx, "probe address changed", "from", p.config.Address, "to", address)
	p.config.Address = byte(address)
	return nil
}

// ReadEEPROM reads a float from the device scratch storage.
func (p *Probe) ReadEEPROM(ctx context.Context, address byte) (float64, error) {
	if err := p.writeRegister(ctx, regSolution, float64(address)); err != nil {
		return 0, err
	}
	if err := p.sendCommand(ctx, cmdEEPROMRead); err != nil {
		return 0, err
	}
	return p.readRegister(ctx, regBuffer)
}

func (p *Probe) WriteEEPROM(ctx context.Context, address byte, value float64) error {
	if err := p.writeRegister(ctx, regSolution, float64(address)); err != nil {
		return err
	}
	if err := p.writeRegister(ctx, regBuffer, value); err != nil {
		return err
	}
	return p.sendCommand(ctx, cmdEEPROMWrite)
}
