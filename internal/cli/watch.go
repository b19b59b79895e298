package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/docopt/docopt-go"
	"github.com/fatih/color"

	"github.com/dshills/livesettings/internal/settings"
	"github.com/dshills/livesettings/internal/settings/document"
	"github.com/dshills/livesettings/internal/settings/notify"
)

// printer writes one line per change notification.
type printer struct {
	mu  sync.Mutex
	out io.Writer

	source func(a ...any) string
	path   func(a ...any) string
	value  func(a ...any) string
	gone   func(a ...any) string
}

func newPrinter(out io.Writer, noColor bool) *printer {
	colors := []*color.Color{
		color.New(color.FgYellow),
		color.New(color.FgCyan, color.Bold),
		color.New(color.FgGreen),
		color.New(color.FgRed),
	}
	for _, c := range colors {
		if noColor {
			c.DisableColor()
		}
	}
	return &printer{
		out:    out,
		source: colors[0].SprintFunc(),
		path:   colors[1].SprintFunc(),
		value:  colors[2].SprintFunc(),
		gone:   colors[3].SprintFunc(),
	}
}

func (p *printer) print(n document.Node, args notify.Args) {
	value := p.value(n.Raw)
	if args.Source == notify.SourceRemove || !n.Exists() {
		value = p.gone("<absent>")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s %s\n", p.source(args.Source), p.path(displayPath(args.Path)), value)
}

func displayPath(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

// runWatch prints the watched paths, then every change to them as the
// file is edited, until ctx is done. With no paths it watches the whole
// document.
func runWatch(ctx context.Context, c *Command, opts docopt.Opts, cfg Env) error {
	paths, _ := opts["<watch-path>"].([]string)
	if len(paths) == 0 {
		paths = []string{""}
	}

	s, err := openStore(cfg, true, settings.WithAutoReload(true))
	if err != nil {
		return err
	}
	defer s.Close()

	p := newPrinter(c.Stdout, cfg.NoColor)

	var watched []document.Pointer
	for _, path := range paths {
		ptr, err := document.ParsePointer(path)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		watched = append(watched, ptr)

		h := settings.NewSetting[any](s, path, nil)
		defer h.Close()
		h.ConnectJSON(p.print, true)
	}

	// Removals expire the settings above, so report them from the store.
	sub := s.OnChange(func(n document.Node, args notify.Args) {
		if args.Source != notify.SourceRemove {
			return
		}
		removed, err := document.ParsePointer(args.Path)
		if err != nil {
			return
		}
		for _, w := range watched {
			if w.Equal(removed) || removed.IsAncestorOf(w) {
				p.print(n, args)
				return
			}
		}
	})
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}
