package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
	"github.com/mklimuk/ecprobe/cmd/ecprobe/shell"
	"github.com/mklimuk/ecprobe/conductivity"
	"github.com/mklimuk/ecprobe/config"
)

var shellCmd = cli.Command{
	Name:  "shell",
	Usage: "interactive probe shell",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "history",
			Usage: "history file",
			Value: defaultHistoryFile(),
		},
	},
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()
		sh := shell.New(probe, os.Stdout)
		err = sh.Run(ctx, &readline.Config{
			HistoryFile: c.String("history"),
		})
		if err != nil {
			return console.Exit(1, "shell error: %s", console.Red(err))
		}
		return nil
	},
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ecprobe_history")
}

var measureCmd = cli.Command{
	Name:    "measure",
	Aliases: []string{"ec"},
	Usage:   "measure conductivity",
	Flags: []cli.Flag{
		&cli.Float64Flag{
			Name:    "temperature",
			Aliases: []string{"t"},
			Usage:   "compensate for this solution temperature (°C)",
		},
		&cli.Float64Flag{
			Name:  "temp-constant",
			Usage: "temperature to compensate to, 255 uses the actual one",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "compensation policy override: fixed, measured or none",
		},
		&cli.BoolFlag{
			Name:  "yaml",
			Usage: "print the whole measurement as YAML",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()

		var opts []conductivity.MeasureOpt
		if c.IsSet("temperature") {
			opts = append(opts, conductivity.WithTemperature(c.Float64("temperature")))
		}
		if c.IsSet("temp-constant") {
			opts = append(opts, conductivity.WithTempConstant(c.Float64("temp-constant")))
		}
		if c.IsSet("policy") {
			policy, err := config.ParseCompensation(c.String("policy"))
			if err != nil {
				return console.Exit(1, "%s", console.Red(err))
			}
			opts = append(opts, conductivity.WithPolicy(policy))
		}
		if _, err := probe.MeasureConductivity(ctx, opts...); err != nil {
			return console.Exit(1, "measurement error: %s", console.Red(err))
		}
		if !probe.Blocking() {
			// the measurement runs on the device, collect it ourselves
			if err := wait(ctx, probe.Config().ECMeasureTime); err != nil {
				return console.Exit(1, "measurement interrupted: %s", console.Red(err))
			}
			if _, err := probe.Refresh(ctx); err != nil {
				return console.Exit(1, "measurement error: %s", console.Red(err))
			}
		}
		m := probe.Measurement()
		if c.Bool("yaml") {
			return encodeYAML(m)
		}
		if err := m.Err(); err != nil {
			console.Warnf("%s", err)
		}
		console.PInfof(console.PictoDroplet, "%s mS/cm  %s µS/cm  TDS(500) %s ppm",
			console.White(m.MilliSiemens), console.White(m.MicroSiemens), console.White(m.TDS500))
		console.PInfof(console.PictoSalt, "%s PSU", console.White(m.Salinity))
		console.PInfof(console.PictoThermometer, "%s °C  %s °F", console.White(m.TempC), console.White(m.TempF))
		return nil
	},
}

var temperatureCmd = cli.Command{
	Name:    "temperature",
	Aliases: []string{"temp"},
	Usage:   "measure the probe temperature",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()
		if _, err := probe.MeasureTemperature(ctx); err != nil {
			return console.Exit(1, "error getting temperature read: %s", console.Red(err))
		}
		if !probe.Blocking() {
			if err := wait(ctx, probe.Config().TempMeasureTime); err != nil {
				return console.Exit(1, "measurement interrupted: %s", console.Red(err))
			}
			if _, err := probe.ReadTemperature(ctx); err != nil {
				return console.Exit(1, "error getting temperature read: %s", console.Red(err))
			}
		}
		m := probe.Measurement()
		if !m.TemperatureConnected() {
			return console.Exit(1, "%s", console.Red(conductivity.ErrTemperatureDisconnected))
		}
		console.PInfof(console.PictoThermometer, "%s °C  %s °F", console.White(m.TempC), console.White(m.TempF))
		return nil
	},
}

var calibrateCmd = cli.Command{
	Name:      "calibrate",
	Aliases:   []string{"cal"},
	Usage:     "calibrate the probe in a reference solution",
	ArgsUsage: "<solution mS/cm> [temperature °C]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "point",
			Usage: "single, low or high",
			Value: "single",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return console.Exit(1, "usage: %s calibrate %s", c.App.Name, c.Command.ArgsUsage)
		}
		solution, err := strconv.ParseFloat(c.Args().Get(0), 64)
		if err != nil {
			return console.Exit(1, "invalid solution: %s", console.Red(err))
		}
		tempC := 25.0
		if c.NArg() > 1 {
			if tempC, err = strconv.ParseFloat(c.Args().Get(1), 64); err != nil {
				return console.Exit(1, "invalid temperature: %s", console.Red(err))
			}
		}
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()

		switch c.String("point") {
		case "single":
			err = probe.Calibrate(ctx, solution, tempC)
		case "low":
			err = probe.CalibrateLow(ctx, solution, tempC)
		case "high":
			_, err = probe.CalibrateHigh(ctx, solution, tempC)
		default:
			return console.Exit(1, "unknown calibration point %q", c.String("point"))
		}
		if err != nil {
			return console.Exit(1, "calibration error: %s", console.Red(err))
		}
		cal, err := probe.ReadCalibration(ctx)
		if err != nil {
			return console.Exit(1, "could not read calibration: %s", console.Red(err))
		}
		return encodeYAML(cal)
	},
}

var resetCmd = cli.Command{
	Name:  "reset",
	Usage: "clear calibration and restore compensation defaults",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "do not ask for confirmation",
		},
	},
	Action: func(c *cli.Context) error {
		if !c.Bool("yes") {
			answer, err := console.YesOrNo("clear the probe calibration?")
			if err != nil {
				return console.Exit(1, "prompt error: %s", console.Red(err))
			}
			if answer != console.Yes {
				console.Infof("aborted")
				return nil
			}
		}
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()
		if err := probe.Reset(ctx); err != nil {
			return console.Exit(1, "reset error: %s", console.Red(err))
		}
		console.Infof("calibration cleared")
		return nil
	},
}

var dataCmd = cli.Command{
	Name:  "data",
	Usage: "dump measurement registers and calibration as YAML",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()
		m, cal, err := probe.ReadData(ctx)
		if err != nil {
			return console.Exit(1, "read error: %s", console.Red(err))
		}
		return encodeYAML(struct {
			Measurement conductivity.Measurement `yaml:"measurement"`
			Calibration conductivity.Calibration `yaml:"calibration"`
		}{m, cal})
	},
}

var versionCmd = cli.Command{
	Name:  "version",
	Usage: "print probe hardware and firmware version",
	Action: func(c *cli.Context) error {
		ctx := commandContext(c)
		probe, closeProbe, err := openProbe(ctx, cfg)
		if err != nil {
			return console.Exit(1, "probe initialization error: %s", console.Red(err))
		}
		defer closeProbe()
		hw, err := probe.Version(ctx)
		if err != nil {
			return console.Exit(1, "read error: %s", console.Red(err))
		}
		fw, err := probe.FirmwareVersion(ctx)
		if err != nil {
			return console.Exit(1, "read error: %s", console.Red(err))
		}
		console.Printf("%d.%d\n", hw, fw)
		return nil
	},
}

func encodeYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
