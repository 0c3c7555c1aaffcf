// Package output formats command results as text or JSON.
package output

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Format is the output format.
type Format int

const (
	// FormatText is human-readable text.
	FormatText Format = iota
	// FormatJSON is machine-readable JSON.
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// FormatEnv overrides output format detection.
const FormatEnv = "PANEFRESH_OUTPUT_FORMAT"

// Formatter writes results in one format.
type Formatter struct {
	format Format
	writer io.Writer
	pretty bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// New creates a Formatter writing text to stdout unless configured otherwise.
func New(opts ...Option) *Formatter {
	f := &Formatter{format: FormatText, writer: os.Stdout, pretty: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithFormat sets the format.
func WithFormat(format Format) Option {
	return func(f *Formatter) { f.format = format }
}

// WithJSON selects JSON when enabled.
func WithJSON(enabled bool) Option {
	return func(f *Formatter) {
		if enabled {
			f.format = FormatJSON
		} else {
			f.format = FormatText
		}
	}
}

// WithWriter sets the destination.
func WithWriter(w io.Writer) Option {
	return func(f *Formatter) { f.writer = w }
}

// WithPretty controls JSON indentation.
func WithPretty(pretty bool) Option {
	return func(f *Formatter) { f.pretty = pretty }
}

// Format returns the current format.
func (f *Formatter) Format() Format { return f.format }

// IsJSON reports whether output is JSON.
func (f *Formatter) IsJSON() bool { return f.format == FormatJSON }

// Writer returns the destination.
func (f *Formatter) Writer() io.Writer { return f.writer }

// DetectFormat picks the format: explicit flag, then PANEFRESH_OUTPUT_FORMAT,
// then JSON when stdout is not a terminal (tmux run-shell and pipes), else
// text.
func DetectFormat(jsonFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	switch strings.ToLower(os.Getenv(FormatEnv)) {
	case "json":
		return FormatJSON
	case "text":
		return FormatText
	}
	if !IsTerminal() {
		return FormatJSON
	}
	return FormatText
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
