package config

import "time"

const (
	AdapterGeneric = "generic"
	AdapterMCP2221 = "mcp2221"
	AdapterNanoPi  = "nanopi"
	AdapterMock    = "mock"
)

// Config is the on-disk configuration of the ecprobe tool.
type Config struct {
	Bus   BusConfig   `yaml:"bus"`
	Probe ProbeConfig `yaml:"probe"`
}

type BusConfig struct {
	// Adapter is one of generic, mcp2221, nanopi or mock.
	Adapter string `yaml:"adapter"`
	// Device names the periph bus for the generic adapter ("" opens the
	// first one, "/dev/i2c-1" or "1" pick one).
	Device string `yaml:"device"`
	// Speed is the bus clock, e.g. "100kHz". Empty keeps the host default.
	Speed string `yaml:"speed"`
	// NanoPiBus is the bus number used by the nanopi adapter.
	NanoPiBus int `yaml:"nanopi_bus"`
	// MCP2221Index selects a bridge when several are attached, -1 requires
	// exactly one.
	MCP2221Index *int `yaml:"mcp2221_index"`
}

type ProbeConfig struct {
	Address            int           `yaml:"address"`
	Blocking           *bool         `yaml:"blocking"`
	Compensation       string        `yaml:"compensation"`
	DefaultTemperature *float64      `yaml:"default_temperature"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
	ECMeasureTime      time.Duration `yaml:"ec_measure_time"`
	TempMeasureTime    time.Duration `yaml:"temp_measure_time"`
}
