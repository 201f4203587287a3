package config

import (
	"fmt"

	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/ecprobe/conductivity"
)

// ParseCompensation maps the configuration name of a compensation policy to
// its driver value.
func ParseCompensation(name string) (conductivity.CompensationPolicy, error) {
	for _, p := range []conductivity.CompensationPolicy{
		conductivity.CompensateFixed,
		conductivity.CompensateMeasured,
		conductivity.CompensateNone,
	} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown compensation policy %q", name)
}

// ProbeConfig converts a normalized configuration into driver settings.
func (c *Config) ProbeConfig() (conductivity.Config, error) {
	policy, err := ParseCompensation(c.Probe.Compensation)
	if err != nil {
		return conductivity.Config{}, err
	}
	return conductivity.Config{
		Address:            byte(c.Probe.Address),
		Blocking:           *c.Probe.Blocking,
		Compensation:       policy,
		DefaultTemperature: *c.Probe.DefaultTemperature,
		SettleDelay:        c.Probe.SettleDelay,
		ECMeasureTime:      c.Probe.ECMeasureTime,
		TempMeasureTime:    c.Probe.TempMeasureTime,
	}, nil
}

// BusSpeed returns the configured bus clock, zero when unset.
func (c *Config) BusSpeed() (physic.Frequency, error) {
	var f physic.Frequency
	if c.Bus.Speed == "" {
		return 0, nil
	}
	if err := f.Set(c.Bus.Speed); err != nil {
		return 0, fmt.Errorf("invalid bus speed %q: %w", c.Bus.Speed, err)
	}
	return f, nil
}
