package config

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Validate checks configuration correctness. Zero values are accepted and
// filled in by Normalize. It does not mutate the configuration.
func Validate(cfg *Config) error {
	switch cfg.Bus.Adapter {
	case "", AdapterGeneric, AdapterMCP2221, AdapterNanoPi, AdapterMock:
	default:
		return fmt.Errorf("bus: unknown adapter %q", cfg.Bus.Adapter)
	}
	if cfg.Bus.Speed != "" {
		var f physic.Frequency
		if err := f.Set(cfg.Bus.Speed); err != nil {
			return fmt.Errorf("bus: invalid speed %q: %w", cfg.Bus.Speed, err)
		}
		if f <= 0 {
			return fmt.Errorf("bus: speed must be positive")
		}
	}
	if cfg.Bus.NanoPiBus < 0 {
		return fmt.Errorf("bus: invalid nanopi bus %d", cfg.Bus.NanoPiBus)
	}

	p := cfg.Probe
	if p.Address != 0 && (p.Address < 1 || p.Address > 127) {
		return fmt.Errorf("probe: address %#x out of range 0x01-0x7f", p.Address)
	}
	if _, err := ParseCompensation(p.Compensation); p.Compensation != "" && err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"settle_delay":      p.SettleDelay,
		"ec_measure_time":   p.ECMeasureTime,
		"temp_measure_time": p.TempMeasureTime,
	} {
		if d < 0 {
			return fmt.Errorf("probe: %s must not be negative", name)
		}
	}
	return nil
}
