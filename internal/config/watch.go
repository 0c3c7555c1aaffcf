package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/theirongolddev/panefresh/internal/watcher"
)

// Watch reloads the config at path whenever it changes on disk and passes
// the result to onChange. A file that fails to parse is reported through
// onChange with the error and the default config. It returns a function
// that stops watching.
func Watch(path string, onChange func(*Config, error)) (func(), error) {
	if path == "" {
		path = DefaultPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	w, err := watcher.New(func(paths []string) {
		cfg, err := LoadOrDefault(abs)
		if onChange != nil {
			onChange(cfg, err)
		}
	},
		watcher.WithDebounce(500*time.Millisecond),
		watcher.WithErrorHandler(func(err error) {
			slog.Warn("config watcher error", "path", abs, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	if err := w.Track(abs); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching config path %s: %w", abs, err)
	}

	return func() {
		w.Close()
	}, nil
}
