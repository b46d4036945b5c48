package logger

import (
	"io"
	"os"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type options struct {
	out    io.Writer
	errOut io.Writer
	format string
	source bool
}

func defaultOptions() options {
	return options{
		out:    os.Stdout,
		errOut: os.Stderr,
		format: FormatText,
		source: true,
	}
}

// Option configures a logger built by Init or New.
type Option func(*options)

// WithOutput sets the writer for records below error level.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.out = w
		}
	}
}

// WithErrorOutput sets the writer for error records.
func WithErrorOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.errOut = w
		}
	}
}

// WithFormat selects "text" or "json" output. Empty keeps the default.
func WithFormat(format string) Option {
	return func(o *options) {
		if format != "" {
			o.format = format
		}
	}
}

// WithSource toggles the source=file:line field.
func WithSource(enabled bool) Option {
	return func(o *options) {
		o.source = enabled
	}
}
