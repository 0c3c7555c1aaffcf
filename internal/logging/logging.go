// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Mode selects defaults for the kind of process being started.
type Mode uint8

const (
	// ModeCLI is a short-lived command: quiet, stderr.
	ModeCLI Mode = iota + 1
	// ModeDaemon is the long-running tmux refresher: info, file.
	ModeDaemon
	// ModeTUI owns the terminal, so it never logs to stderr.
	ModeTUI
)

func (m Mode) String() string {
	switch m {
	case ModeDaemon:
		return "daemon"
	case ModeTUI:
		return "tui"
	default:
		return "cli"
	}
}

// Environment overrides.
const (
	EnvLogLevel      = "PANEFRESH_LOG_LEVEL"
	EnvLogFormat     = "PANEFRESH_LOG_FORMAT"
	EnvLogSink       = "PANEFRESH_LOG_SINK"
	EnvLogFile       = "PANEFRESH_LOG_FILE"
	EnvLogMaxSizeMB  = "PANEFRESH_LOG_MAX_SIZE_MB"
	EnvLogMaxBackups = "PANEFRESH_LOG_MAX_BACKUPS"
)

// Options configures Init. Empty fields take the Mode's defaults.
type Options struct {
	Mode       Mode
	Level      string // debug, info, warn, error
	Format     string // text, json
	Sink       string // stderr, file, none
	File       string
	MaxSizeMB  int
	MaxBackups int
	Version    string
}

func (o Options) withDefaults() Options {
	if o.Mode == 0 {
		o.Mode = ModeCLI
	}
	level, sink := "warn", "stderr"
	switch o.Mode {
	case ModeDaemon:
		level, sink = "info", "file"
	case ModeTUI:
		level, sink = "info", "file"
	}
	if o.Level == "" {
		o.Level = level
	}
	if o.Sink == "" {
		o.Sink = sink
		if o.File != "" {
			o.Sink = "file"
		}
	}
	if o.Format == "" {
		o.Format = "text"
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups < 0 {
		o.MaxBackups = 0
	}
	return o
}

func (o Options) withEnv() Options {
	str := func(dst *string, env string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	num := func(dst *int, env string) {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(env))); err == nil {
			*dst = n
		}
	}
	str(&o.Level, EnvLogLevel)
	str(&o.Format, EnvLogFormat)
	str(&o.Sink, EnvLogSink)
	str(&o.File, EnvLogFile)
	num(&o.MaxSizeMB, EnvLogMaxSizeMB)
	num(&o.MaxBackups, EnvLogMaxBackups)
	return o
}

// Init installs the default slog logger and returns a func that flushes and
// closes the sink.
func Init(opts Options) (func() error, error) {
	opts = opts.withEnv().withDefaults()
	logger, closeFn, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closeFn, nil
}

// New builds a logger without installing it.
func New(opts Options) (*slog.Logger, func() error, error) {
	opts = opts.withDefaults()
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closeFn, err := writer(opts)
	if err != nil {
		return nil, nil, err
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "text":
		h = slog.NewTextHandler(w, hopts)
	default:
		closeFn()
		return nil, nil, fmt.Errorf("logging: invalid format %q", opts.Format)
	}

	logger := slog.New(h).With(slog.String("mode", opts.Mode.String()))
	if opts.Version != "" {
		logger = logger.With(slog.String("version", opts.Version))
	}
	return logger, closeFn, nil
}

// ParseLevel parses a level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: invalid level %q", s)
	}
}

// DefaultFile is the log file used when the file sink has no explicit path.
func DefaultFile() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "panefresh", "panefresh.log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "panefresh", "panefresh.log")
}

func writer(opts Options) (io.Writer, func() error, error) {
	nop := func() error { return nil }
	switch strings.ToLower(opts.Sink) {
	case "none":
		return io.Discard, nop, nil
	case "stderr":
		return os.Stderr, nop, nil
	case "file":
		path := opts.File
		if path == "" {
			path = DefaultFile()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("logging: creating log dir: %w", err)
		}
		rot := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     14,
		}
		return rot, rot.Close, nil
	default:
		return nil, nil, fmt.Errorf("logging: invalid sink %q", opts.Sink)
	}
}
