package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug, which includes per-relay stream
// summaries from the gateway.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the colorized charmbracelet/log handler used by the
// interactive commands.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler, for gateways whose logs are shipped
// to a collector. It wins over WithPretty.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the output. The default is os.Stderr so that logs
// never interleave with replies streamed to stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters writes every record to all of w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithComponent tags every record with component=name, e.g. "gateway" or
// "chat".
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}
