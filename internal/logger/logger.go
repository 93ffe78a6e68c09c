// Package logger builds the zerolog logger used across the relay.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const consoleTimeFormat = "02-01-2006 15:04:05"

// Config contains logging configuration.
type Config struct {
	// Level is the logging level (debug, info, warn, error, disabled).
	Level string

	// Format is the log format: json, or console/text for human readable output.
	Format string

	// Output is stdout, stderr or a file path.
	Output string
}

// New constructs a logger according to cfg. When writers are given they
// replace cfg.Output. The returned close func releases a file output and is
// a no-op otherwise; it is never nil.
func New(cfg Config, writers ...io.Writer) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}

	var (
		out     io.Writer
		closeFn = noop
	)
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	} else {
		out, closeFn, err = openOutput(cfg.Output)
		if err != nil {
			return zerolog.Nop(), noop, err
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
	case "console", "text":
		cw := zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat, NoColor: !isTerminal(out)}
		out = cw
	default:
		_ = closeFn()
		return zerolog.Nop(), noop, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	zerolog.DurationFieldUnit = time.Millisecond

	return zerolog.New(out).With().Timestamp().Logger().Level(lvl), closeFn, nil
}

// ParseLevel parses a level name, defaulting to info when empty.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, err
	}
	return lvl, nil
}

func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout, noop, nil
	case "stderr":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open log output: %w", err)
		}
		return f, f.Close, nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
