// Package cli implements settingsctl, a command line tool for reading and
// editing a JSON settings file through the settings package.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"github.com/dshills/livesettings/internal/settings"
)

// Version is the settingsctl version reported by --version.
var Version = "dev"

const usage = `settingsctl - read and edit a JSON settings file.

Paths are JSON pointers such as /editor/tab_width. The empty string
addresses the whole document. Values are JSON.

Usage:
  settingsctl [--file=<file>] get <path>
  settingsctl [--file=<file>] set <path> <json>
  settingsctl [--file=<file>] append <path> <json>
  settingsctl [--file=<file>] remove <path>
  settingsctl [--file=<file>] remove-index <path> <index>
  settingsctl [--file=<file>] keys <path>
  settingsctl [--file=<file>] len <path>
  settingsctl [--file=<file>] patch <patch-file>
  settingsctl [--file=<file>] print
  settingsctl [--file=<file>] watch [<watch-path>...]
  settingsctl -h | --help
  settingsctl --version

Options:
  -f --file=<file>  Settings file; defaults to $LIVESETTINGS_FILE or settings.json.
  -h --help         Show this screen.
  --version         Show version.

Environment:
  LIVESETTINGS_FILE       Settings file.
  LIVESETTINGS_INDENT     Indentation used when saving.
  LIVESETTINGS_VERBOSITY  Log verbosity.
  LIVESETTINGS_NO_COLOR   Disable colored watch output.`

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Command runs settingsctl against the given output streams.
type Command struct {
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a Command writing to stdout and stderr.
func New(stdout, stderr io.Writer) *Command {
	return &Command{Stdout: stdout, Stderr: stderr}
}

// Run parses args (without the program name) and executes the command.
// It returns the process exit code. watch runs until ctx is done.
func (c *Command) Run(ctx context.Context, args []string) int {
	var help string
	var helpErr error
	parser := &docopt.Parser{
		HelpHandler: func(err error, text string) { help, helpErr = text, err },
	}
	opts, err := parser.ParseArgs(usage, args, Version)
	if help != "" || err != nil {
		if helpErr != nil || err != nil {
			if help == "" {
				help = err.Error()
			}
			fmt.Fprintln(c.Stderr, help)
			return ExitUsage
		}
		fmt.Fprintln(c.Stdout, help)
		return ExitOK
	}

	cfg, err := ParseEnv()
	if err != nil {
		fmt.Fprintf(c.Stderr, "Error: %v\n", err)
		return ExitUsage
	}
	if file, _ := opts.String("--file"); file != "" {
		cfg.File = file
	}
	setupLogging(cfg.Verbosity)
	defer glog.Flush()

	if err := c.dispatch(ctx, opts, cfg); err != nil {
		fmt.Fprintf(c.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitOK
}

var errUsage = errors.New("usage")

type handler func(ctx context.Context, c *Command, opts docopt.Opts, cfg Env) error

var commands = []struct {
	name string
	run  handler
}{
	{"get", runGet},
	{"set", runSet},
	{"append", runAppend},
	{"remove", runRemove},
	{"remove-index", runRemoveIndex},
	{"keys", runKeys},
	{"len", runLen},
	{"patch", runPatch},
	{"print", runPrint},
	{"watch", runWatch},
}

func (c *Command) dispatch(ctx context.Context, opts docopt.Opts, cfg Env) error {
	for _, cmd := range commands {
		if ok, _ := opts.Bool(cmd.name); ok {
			glog.V(1).Infof("[cli] %s on %s", cmd.name, cfg.File)
			return cmd.run(ctx, c, opts, cfg)
		}
	}
	return fmt.Errorf("%w: no command given", errUsage)
}

// setupLogging sends glog output to stderr at the given verbosity.
func setupLogging(verbosity int) {
	if !flag.Parsed() {
		_ = flag.CommandLine.Parse(nil)
	}
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(verbosity))
}

// openStore loads cfg.File. A missing file gives an empty store when
// allowMissing is set, so the first write creates it.
func openStore(cfg Env, allowMissing bool, opts ...settings.StoreOption) (*settings.Store, error) {
	opts = append([]settings.StoreOption{
		settings.WithPath(cfg.File),
		settings.WithIndent(cfg.Indent),
	}, opts...)
	s := settings.NewStore(opts...)

	err := s.Load("")
	var le *settings.LoadError
	if errors.As(err, &le) && le.Kind == settings.LoadErrorCannotOpen && allowMissing {
		return s, nil
	}
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
