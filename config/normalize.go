package config

import (
	"github.com/mklimuk/ecprobe"
	"github.com/mklimuk/ecprobe/conductivity"
	"github.com/mklimuk/ecprobe/i2c"
)

// Normalize fills defaults for every value left empty. It must be called
// after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Bus.Adapter == "" {
		cfg.Bus.Adapter = AdapterGeneric
	}
	if cfg.Bus.NanoPiBus == 0 {
		cfg.Bus.NanoPiBus = i2c.DefaultNanoPiBus
	}
	if cfg.Bus.MCP2221Index == nil {
		index := -1
		cfg.Bus.MCP2221Index = &index
	}

	defaults := conductivity.DefaultConfig()
	p := &cfg.Probe
	if p.Address == 0 {
		p.Address = ecprobe.DefaultAddress
	}
	if p.Blocking == nil {
		p.Blocking = &defaults.Blocking
	}
	if p.Compensation == "" {
		p.Compensation = defaults.Compensation.String()
	}
	if p.DefaultTemperature == nil {
		p.DefaultTemperature = &defaults.DefaultTemperature
	}
	if p.SettleDelay == 0 {
		p.SettleDelay = defaults.SettleDelay
	}
	if p.ECMeasureTime == 0 {
		p.ECMeasureTime = defaults.ECMeasureTime
	}
	if p.TempMeasureTime == 0 {
		p.TempMeasureTime = defaults.TempMeasureTime
	}
}
