package logger

import (
	"io"
	"log/slog"
)

// Format selects the slog handler New builds.
type Format int

const (
	// FormatText is slog's key=value text handler.
	FormatText Format = iota
	// FormatJSON is one JSON object per record, used for vilm.log.
	FormatJSON
	// FormatPretty is the colorized charmbracelet/log handler for stderr.
	FormatPretty
)

// Option adjusts how New builds a logger.
type Option func(*config)

// WithFormat picks the record encoding.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithDebug lowers the level from Info to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithWriter sends records to w instead of os.Stdout. The plugin host
// must never log to stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.w = w
	}
}

// WithSource adds file:line of the logging call.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
