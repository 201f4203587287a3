package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
	"github.com/mklimuk/ecprobe/conductivity"
	"github.com/mklimuk/ecprobe/config"
)

func TestOpenProbe_Mock(t *testing.T) {
	c := config.Default()
	c.Bus.Adapter = config.AdapterMock
	c.Probe.SettleDelay = 1
	c.Probe.ECMeasureTime = 1

	probe, closeProbe, err := openProbe(context.Background(), c)
	require.NoError(t, err)
	defer closeProbe()

	mS, err := probe.MeasureConductivity(context.Background(), conductivity.WithTemperature(25))
	require.NoError(t, err)
	assert.Equal(t, 1.413, mS)
}

func TestOpenBus_Unknown(t *testing.T) {
	c := config.Default()
	c.Bus.Adapter = "serial"
	_, _, err := openProbe(context.Background(), c)
	assert.ErrorContains(t, err, "unknown adapter")
}

func runFlags(t *testing.T, args ...string) error {
	t.Helper()
	app := cli.NewApp()
	app.Flags = globalFlags
	app.Action = loadConfig
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app.Run(append([]string{"ecprobe"}, args...))
}

func TestLoadConfig_Flags(t *testing.T) {
	defer func() { cfg = config.Default() }()

	require.NoError(t, runFlags(t, "--adapter", "mock", "--address", "0x40", "--non-blocking"))
	assert.Equal(t, config.AdapterMock, cfg.Bus.Adapter)
	assert.Equal(t, 0x40, cfg.Probe.Address)
	assert.False(t, *cfg.Probe.Blocking)
}

func TestLoadConfig_AddressOutOfRange(t *testing.T) {
	defer func() { cfg = config.Default() }()

	for _, address := range []string{"0", "128", "-1"} {
		t.Run(address, func(t *testing.T) {
			assert.Error(t, runFlags(t, "--adapter", "mock", "--address="+address))
			assert.Equal(t, config.AdapterGeneric, cfg.Bus.Adapter)
			pc, err := cfg.ProbeConfig()
			require.NoError(t, err)
			assert.NotEqual(t, byte(0), pc.Address)
		})
	}
}

func TestWait_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, wait(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, wait(context.Background(), time.Millisecond))
}

func TestMeasureCmd_NonBlocking(t *testing.T) {
	defer func() { cfg = config.Default() }()
	color.NoColor = true
	out := &bytes.Buffer{}
	console.SetOutput(out, io.Discard)
	defer console.SetOutput(os.Stdout, os.Stderr)

	app := cli.NewApp()
	app.Flags = globalFlags
	app.Before = loadConfig
	app.Commands = cli.Commands{&measureCmd}
	app.ExitErrHandler = func(*cli.Context, error) {}
	require.NoError(t, app.Run([]string{"ecprobe", "--adapter", "mock", "--non-blocking", "measure", "--policy", "none"}))

	assert.Contains(t, out.String(), "1.413 mS/cm")
}

func TestLoadConfig_FileAndOverride(t *testing.T) {
	defer func() { cfg = config.Default() }()
	path := filepath.Join(t.TempDir(), "ecprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  adapter: nanopi\nprobe:\n  compensation: none\n"), 0o600))

	require.NoError(t, runFlags(t, "--config", path, "--adapter", "mock"))
	assert.Equal(t, config.AdapterMock, cfg.Bus.Adapter)
	assert.Equal(t, "none", cfg.Probe.Compensation)
}

func TestLoadConfig_Invalid(t *testing.T) {
	defer func() { cfg = config.Default() }()
	assert.Error(t, runFlags(t, "--address", "300"))
	assert.Equal(t, config.AdapterGeneric, cfg.Bus.Adapter)
}
