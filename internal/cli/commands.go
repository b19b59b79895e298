package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/docopt/docopt-go"
	"github.com/tidwall/pretty"

	"github.com/dshills/livesettings/internal/settings"
	"github.com/dshills/livesettings/internal/settings/loader"
	"github.com/dshills/livesettings/internal/settings/notify"
)

var cliArgs = notify.Args{Origin: "settingsctl"}

func runGet(_ context.Context, c *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	s, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n, ok := s.Get(path)
	if !ok {
		return fmt.Errorf("%s: not found", path)
	}
	fmt.Fprintf(c.Stdout, "%s\n", pretty.Ugly([]byte(n.Raw)))
	return nil
}

func runSet(_ context.Context, _ *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	value, _ := opts.String("<json>")
	return edit(cfg, func(s *settings.Store) error {
		return s.Set(path, []byte(value), cliArgs)
	})
}

func runAppend(_ context.Context, _ *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	value, _ := opts.String("<json>")
	return edit(cfg, func(s *settings.Store) error {
		return s.Append(path, []byte(value), cliArgs)
	})
}

func runRemove(_ context.Context, _ *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	return edit(cfg, func(s *settings.Store) error {
		if !s.Remove(path) {
			return fmt.Errorf("%s: not found", path)
		}
		return nil
	})
}

func runRemoveIndex(_ context.Context, _ *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	raw, _ := opts.String("<index>")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: index %q is not a number", errUsage, raw)
	}
	return edit(cfg, func(s *settings.Store) error {
		if !s.RemoveArrayValue(path, index) {
			return fmt.Errorf("%s: no element %d", path, index)
		}
		return nil
	})
}

func runKeys(_ context.Context, c *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	s, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n, ok := s.Get(path)
	if !ok || !n.IsObject() {
		return fmt.Errorf("%s: not an object", path)
	}
	for _, key := range s.ObjectKeys(path) {
		fmt.Fprintln(c.Stdout, key)
	}
	return nil
}

func runLen(_ context.Context, c *Command, opts docopt.Opts, cfg Env) error {
	path, _ := opts.String("<path>")
	s, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	n, ok := s.Get(path)
	if !ok || !n.IsArray() {
		return fmt.Errorf("%s: not an array", path)
	}
	fmt.Fprintln(c.Stdout, s.ArraySize(path))
	return nil
}

func runPatch(_ context.Context, _ *Command, opts docopt.Opts, cfg Env) error {
	file, _ := opts.String("<patch-file>")
	patch, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read patch: %w", err)
	}
	return edit(cfg, func(s *settings.Store) error {
		return s.ApplyPatch(patch, cliArgs)
	})
}

func runPrint(_ context.Context, c *Command, _ docopt.Opts, cfg Env) error {
	s, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.PrettyPrint(c.Stdout)
}

// edit loads the file, applies fn and saves the result. A missing file
// starts out empty. Only JSON files can be edited.
func edit(cfg Env, fn func(*settings.Store) error) error {
	if f := loader.FormatOf(cfg.File); f != loader.FormatJSON {
		return fmt.Errorf("%s: cannot edit a %s file, only json", cfg.File, f)
	}

	s, err := openStore(cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}
	return s.Save("")
}
