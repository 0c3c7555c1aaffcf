// Package config loads and saves the panefresh configuration file. The
// [refresh] table is the persisted refresh policy record; the other tables
// configure the hosts, logging and the refresh journal.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/panefresh/internal/policy"
)

// Config represents the main configuration
type Config struct {
	Refresh   RefreshConfig   `toml:"refresh"`
	Tmux      TmuxConfig      `toml:"tmux"`
	Workspace WorkspaceConfig `toml:"workspace"`
	Log       LogConfig       `toml:"log"`
	Journal   JournalConfig   `toml:"journal"`

	// Migrated is set by Load when legacy keys were rewritten.
	Migrated bool `toml:"-"`
}

// RefreshConfig is the persisted refresh policy record. Key names are kept
// stable so existing records keep loading.
type RefreshConfig struct {
	AutoRefreshMode                           string   `toml:"autoRefreshMode"`
	AutoRefreshIntervalInSeconds              int      `toml:"autoRefreshIntervalInSeconds"`
	IncludeViewTypesForAutoRefresh            []string `toml:"includeViewTypesForAutoRefresh"`
	ExcludeViewTypesForAutoRefresh            []string `toml:"excludeViewTypesForAutoRefresh"`
	ShouldAutoRefreshMarkdownViewInSourceMode bool     `toml:"shouldAutoRefreshMarkdownViewInSourceMode"`
	ShouldAutoRefreshOnFileChange             bool     `toml:"shouldAutoRefreshOnFileChange"`
	ShouldLoadDeferredViewsOnAutoRefresh      bool     `toml:"shouldLoadDeferredViewsOnAutoRefresh"`
	ShouldLoadDeferredViewsOnStart            bool     `toml:"shouldLoadDeferredViewsOnStart"`
	ShouldUseQuickTextRefresh                 bool     `toml:"shouldUseQuickTextRefresh"`

	// Legacy name of ShouldAutoRefreshOnFileChange. Removed on load.
	AutoRefreshOnFileChange *bool `toml:"autoRefreshOnFileChange,omitempty"`
}

// TmuxConfig configures the tmux host.
type TmuxConfig struct {
	Socket      string `toml:"socket"`       // tmux -L socket name ("" = default server)
	MenuKey     string `toml:"menu_key"`     // root-table key opening the pane menu
	ActionLabel string `toml:"action_label"` // text stored in @panefresh_action
}

// WorkspaceConfig configures the built-in workspace host.
type WorkspaceConfig struct {
	Theme        string `toml:"theme"`         // auto, dark or light
	GlamourStyle string `toml:"glamour_style"` // "" follows the theme
	TabWidth     int    `toml:"tab_width"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // text or json
	File       string `toml:"file"`   // "" logs to stderr
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// JournalConfig configures the JSONL refresh journal.
type JournalConfig struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// DefaultRefreshConfig returns the record of policy.Default().
func DefaultRefreshConfig() RefreshConfig {
	return FromPolicy(policy.Default())
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Refresh: DefaultRefreshConfig(),
		Tmux: TmuxConfig{
			MenuKey:     "MouseDown3Pane",
			ActionLabel: "⟳",
		},
		Workspace: WorkspaceConfig{
			Theme:    "auto",
			TabWidth: 4,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Journal: JournalConfig{
			Enabled:       true,
			Path:          filepath.Join(stateDir(), "journal.jsonl"),
			RetentionDays: 7,
		},
	}
}

// DefaultPath returns the config file location. PANEFRESH_CONFIG wins over
// $XDG_CONFIG_HOME/panefresh/config.toml.
func DefaultPath() string {
	if p := os.Getenv("PANEFRESH_CONFIG"); p != "" {
		return ExpandHome(p)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "panefresh", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "panefresh", "config.toml")
}

func stateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "panefresh")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "panefresh")
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// Load reads the config at path. Keys missing from the file keep their
// default values; legacy refresh keys are migrated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes a config document.
func Parse(data string) (*Config, error) {
	cfg := Default()
	cfg.Refresh.AutoRefreshMode = ""

	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Migrated = migrateRefresh(&cfg.Refresh)
	if !md.IsDefined("refresh", "autoRefreshMode") {
		cfg.Refresh.AutoRefreshMode = inferMode(cfg.Refresh.AutoRefreshIntervalInSeconds)
	}
	if _, err := policy.ParseMode(cfg.Refresh.AutoRefreshMode); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Journal.Path = ExpandHome(cfg.Journal.Path)
	cfg.Log.File = ExpandHome(cfg.Log.File)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// migrateRefresh moves the legacy file-change key to its current name,
// overwriting the current key when both are present. Reports whether
// anything changed.
func migrateRefresh(r *RefreshConfig) bool {
	if r.AutoRefreshOnFileChange == nil {
		return false
	}
	r.ShouldAutoRefreshOnFileChange = *r.AutoRefreshOnFileChange
	r.AutoRefreshOnFileChange = nil
	return true
}

// Records written before modes existed only had an interval, which meant
// "refresh the active view".
func inferMode(interval int) string {
	if interval > 0 {
		return policy.ActiveView.String()
	}
	return policy.Off.String()
}

func applyEnvOverrides(cfg *Config) {
	if mode := os.Getenv("PANEFRESH_REFRESH_MODE"); mode != "" {
		if m, err := policy.ParseMode(mode); err == nil {
			cfg.Refresh.AutoRefreshMode = m.String()
		}
	}
	if v := os.Getenv("PANEFRESH_REFRESH_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Refresh.AutoRefreshIntervalInSeconds = n
		}
	}
	if socket := os.Getenv("PANEFRESH_TMUX_SOCKET"); socket != "" {
		cfg.Tmux.Socket = socket
	}
}

// LoadOrDefault loads path and falls back to Default when the file is
// missing or unusable. The returned error explains the fallback and is nil
// for a missing file.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Default(), err
}

// ToPolicy converts the record to a policy.
func (r RefreshConfig) ToPolicy() (policy.Policy, error) {
	modeName := r.AutoRefreshMode
	if modeName == "" {
		modeName = inferMode(r.AutoRefreshIntervalInSeconds)
	}
	mode, err := policy.ParseMode(modeName)
	if err != nil {
		return policy.Default(), err
	}
	p := policy.Policy{
		Mode:                mode,
		IntervalSeconds:     r.AutoRefreshIntervalInSeconds,
		IncludeTypes:        append([]string(nil), r.IncludeViewTypesForAutoRefresh...),
		ExcludeTypes:        append([]string(nil), r.ExcludeViewTypesForAutoRefresh...),
		RefreshInSourceMode: r.ShouldAutoRefreshMarkdownViewInSourceMode,
		RefreshOnFileChange: r.ShouldAutoRefreshOnFileChange,
		LoadLazyOnRefresh:   r.ShouldLoadDeferredViewsOnAutoRefresh,
		LoadLazyOnStart:     r.ShouldLoadDeferredViewsOnStart,
		UseQuickTextRefresh: r.ShouldUseQuickTextRefresh,
	}
	if err := p.Validate(); err != nil {
		return policy.Default(), err
	}
	return p, nil
}

// FromPolicy converts a policy to its persisted record.
func FromPolicy(p policy.Policy) RefreshConfig {
	return RefreshConfig{
		AutoRefreshMode:                           p.Mode.String(),
		AutoRefreshIntervalInSeconds:              p.IntervalSeconds,
		IncludeViewTypesForAutoRefresh:            append([]string{}, p.IncludeTypes...),
		ExcludeViewTypesForAutoRefresh:            append([]string{}, p.ExcludeTypes...),
		ShouldAutoRefreshMarkdownViewInSourceMode: p.RefreshInSourceMode,
		ShouldAutoRefreshOnFileChange:             p.RefreshOnFileChange,
		ShouldLoadDeferredViewsOnAutoRefresh:      p.LoadLazyOnRefresh,
		ShouldLoadDeferredViewsOnStart:            p.LoadLazyOnStart,
		ShouldUseQuickTextRefresh:                 p.UseQuickTextRefresh,
	}
}

// Policy returns the refresh policy of cfg, or policy.Default() with the
// reason when the record is invalid.
func (c *Config) Policy() (policy.Policy, error) {
	return c.Refresh.ToPolicy()
}

// Save writes cfg to path atomically.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Print(cfg, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// Print writes cfg as TOML.
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# panefresh configuration")
	fmt.Fprintln(w)
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// CreateDefault writes the default config to path unless it already exists.
func CreateDefault(path string) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}
	if err := Save(path, Default()); err != nil {
		return "", err
	}
	return path, nil
}
