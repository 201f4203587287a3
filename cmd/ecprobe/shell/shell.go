package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
	"github.com/mklimuk/ecprobe/conductivity"
)

// ErrInvalidArgument is reported for malformed command arguments.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrUnknownCommand is reported for lines that name no command.
var ErrUnknownCommand = errors.New("unknown command")

const Prompt = "> "

type Command struct {
	Name  string
	Args  string
	Usage string
	Run   func(ctx context.Context, s *Shell, args []string) error
}

// Shell is an interactive line interpreter driving a single probe.
type Shell struct {
	probe    *conductivity.Probe
	out      io.Writer
	commands map[string]Command
}

func New(probe *conductivity.Probe, out io.Writer) *Shell {
	s := &Shell{
		probe:    probe,
		out:      out,
		commands: make(map[string]Command),
	}
	for _, c := range commands {
		s.commands[c.Name] = c
	}
	return s
}

// Names returns the command names in alphabetical order.
func (s *Shell) Names() []string {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exec runs a single input line. It reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "exit", "quit":
		return true, nil
	case "help", "?":
		s.help(args)
		return false, nil
	}
	c, ok := s.commands[name]
	if !ok {
		return false, fmt.Errorf("%w %q, try help", ErrUnknownCommand, name)
	}
	slog.DebugContext(ctx, "shell command", "name", name, "args", args)
	if err := c.Run(ctx, s, args); err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return false, nil
}

// Run reads lines until EOF, an exit command or context cancellation.
// Command errors are printed and the loop continues.
func (s *Shell) Run(ctx context.Context, cfg *readline.Config) error {
	if cfg == nil {
		cfg = &readline.Config{}
	}
	if cfg.Prompt == "" {
		cfg.Prompt = Prompt
	}
	if cfg.AutoComplete == nil {
		cfg.AutoComplete = s.completer()
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return fmt.Errorf("could not start shell: %w", err)
	}
	defer func() { _ = rl.Close() }()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		exit, err := s.Exec(ctx, line)
		if err != nil {
			s.printf("%s", console.Format(err))
		}
		if exit {
			return nil
		}
	}
}

func (s *Shell) completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	}
	for _, name := range s.Names() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Shell) help(args []string) {
	names := s.Names()
	if len(args) > 0 {
		names = args
	}
	for _, name := range names {
		c, ok := s.commands[name]
		if !ok {
			s.printf("%s: no such command\n", name)
			continue
		}
		s.printf("%-9s%-18s%s\n", console.Bold(c.Name), c.Args, c.Usage)
	}
	if len(args) == 0 {
		s.printf("%-9s%-18s%s\n", console.Bold("exit"), "", "leave the shell")
	}
}

func (s *Shell) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}
