package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// L is the global logger. It discards everything until Init is called.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the logger.
type Options struct {
	Level  string    `yaml:"level"`  // debug, info, warn, error. Default: info
	Format string    `yaml:"format"` // text or json. Default: text
	Output io.Writer `yaml:"-"`      // Default: os.Stderr
}

// Init replaces L according to opts. Call from main before any component
// is constructed; components capture the logger they are built with.
func Init(opts Options) error {
	var level slog.Level
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return errors.Wrapf(err, "logging: level %q", opts.Level)
		}
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(opts.Format) {
	case "", "text":
		L = slog.New(slog.NewTextHandler(out, handlerOpts))
	case "json":
		L = slog.New(slog.NewJSONHandler(out, handlerOpts))
	default:
		return errors.Newf("logging: unknown format %q", opts.Format)
	}
	return nil
}

// For returns a logger tagged with the component name.
func For(component string) *slog.Logger {
	return L.With("component", component)
}
