package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/ecprobe/adapter"
	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221DetectCmd,
	},
}

func bridge() *adapter.MCP2221 {
	return adapter.NewMCP2221(adapter.WithDeviceIndex(*cfg.Bus.MCP2221Index))
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the bridge I2C engine status",
	Action: func(c *cli.Context) error {
		status, err := bridge().Status(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a pending transfer and free the bus",
	Action: func(c *cli.Context) error {
		status, err := bridge().ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}

var mcp2221DetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list attached bridges",
	Action: func(c *cli.Context) error {
		devices := adapter.Detect()
		if len(devices) == 0 {
			console.Warnf("no MCP2221 bridge found")
			return nil
		}
		return encodeYAML(devices)
	},
}
