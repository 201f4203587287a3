package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ecprobe"
	"github.com/mklimuk/ecprobe/adapter"
	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
	"github.com/mklimuk/ecprobe/conductivity"
	"github.com/mklimuk/ecprobe/config"
	"github.com/mklimuk/ecprobe/i2c"
	"github.com/mklimuk/ecprobe/snsctx"
)

var cfg = config.Default()

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
		EnvVars: []string{"ECPROBE_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Usage:   "bus adapter: generic, mcp2221, nanopi or mock",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "periph bus name for the generic adapter",
	},
	&cli.IntFlag{
		Name:  "address",
		Usage: "probe I2C address",
	},
	&cli.BoolFlag{
		Name:  "non-blocking",
		Usage: "return right after starting measurements",
	},
	&cli.BoolFlag{
		Name:  "verbose",
		Usage: "enable verbose logging",
	},
}

// loadConfig reads the configuration file, when given, and applies the
// global flags on top of it.
func loadConfig(c *cli.Context) error {
	loaded := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if loaded, err = config.Load(path); err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
	}
	if c.IsSet("adapter") {
		loaded.Bus.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		loaded.Bus.Device = c.String("device")
	}
	if c.IsSet("address") {
		address := c.Int("address")
		// 0 is the general call address, never a valid probe
		if address < 1 || address > 127 {
			return console.Exit(1, "invalid flags: %s", console.Red(fmt.Errorf("address %#x out of range 0x01-0x7f", address)))
		}
		loaded.Probe.Address = address
	}
	if c.Bool("non-blocking") {
		blocking := false
		loaded.Probe.Blocking = &blocking
	}
	if err := config.Validate(loaded); err != nil {
		return console.Exit(1, "invalid flags: %s", console.Red(err))
	}
	cfg = loaded
	return nil
}

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}

// wait blocks for d or until ctx is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// openBus opens the transport selected in the configuration. The returned
// function releases it.
func openBus(ctx context.Context, cfg *config.Config) (ecprobe.I2CBus, func(), error) {
	switch cfg.Bus.Adapter {
	case config.AdapterGeneric:
		bus, err := i2c.NewGenericBus(cfg.Bus.Device)
		if err != nil {
			return nil, nil, err
		}
		speed, err := cfg.BusSpeed()
		if err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
		if speed > 0 {
			if err := bus.SetSpeed(speed); err != nil {
				slog.WarnContext(ctx, "bus speed not changed", "error", err)
			}
		}
		slog.DebugContext(ctx, "bus opened", "bus", bus.String())
		return bus, func() { _ = bus.Close() }, nil
	case config.AdapterMCP2221:
		bridge := adapter.NewMCP2221(adapter.WithDeviceIndex(*cfg.Bus.MCP2221Index))
		return bridge, func() {
			if err := bridge.Release(ctx); err != nil {
				slog.WarnContext(ctx, "could not release bridge", "error", err)
			}
		}, nil
	case config.AdapterNanoPi:
		bus, err := i2c.NewNanoPiBus(cfg.Bus.NanoPiBus)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { _ = bus.Close() }, nil
	case config.AdapterMock:
		dev := conductivity.NewMockDevice()
		dev.SetSolution(1.413)
		dev.SetTemperature(23.5)
		return dev, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", cfg.Bus.Adapter)
	}
}

// openProbe connects to the probe and checks it answers.
func openProbe(ctx context.Context, cfg *config.Config) (*conductivity.Probe, func(), error) {
	pc, err := cfg.ProbeConfig()
	if err != nil {
		return nil, nil, err
	}
	bus, closeBus, err := openBus(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %s bus: %w", cfg.Bus.Adapter, err)
	}
	probe := conductivity.NewProbe(bus, conductivity.WithConfig(pc))
	connected, err := probe.Init(ctx)
	if err != nil {
		closeBus()
		return nil, nil, fmt.Errorf("could not reach probe at %#x: %w", pc.Address, err)
	}
	if !connected {
		slog.WarnContext(ctx, "probe does not answer", "address", fmt.Sprintf("%#x", pc.Address))
	}
	return probe, closeBus, nil
}
