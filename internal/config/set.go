package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/theirongolddev/panefresh/internal/policy"
)

type setter func(c *Config, value string) error

func setBool(field func(c *Config) *bool) setter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", value)
		}
		*field(c) = b
		return nil
	}
}

func setList(field func(c *Config) *[]string) setter {
	return func(c *Config, value string) error {
		var out []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		*field(c) = out
		return nil
	}
}

func setString(field func(c *Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

var setters = map[string]setter{
	"refresh.autoRefreshMode": func(c *Config, value string) error {
		m, err := policy.ParseMode(value)
		if err != nil {
			return err
		}
		c.Refresh.AutoRefreshMode = m.String()
		return nil
	},
	"refresh.autoRefreshIntervalInSeconds": func(c *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("expected a non-negative number of seconds, got %q", value)
		}
		c.Refresh.AutoRefreshIntervalInSeconds = n
		return nil
	},
	"refresh.includeViewTypesForAutoRefresh": setList(func(c *Config) *[]string { return &c.Refresh.IncludeViewTypesForAutoRefresh }),
	"refresh.excludeViewTypesForAutoRefresh": setList(func(c *Config) *[]string { return &c.Refresh.ExcludeViewTypesForAutoRefresh }),
	"refresh.shouldAutoRefreshMarkdownViewInSourceMode": setBool(func(c *Config) *bool {
		return &c.Refresh.ShouldAutoRefreshMarkdownViewInSourceMode
	}),
	"refresh.shouldAutoRefreshOnFileChange":        setBool(func(c *Config) *bool { return &c.Refresh.ShouldAutoRefreshOnFileChange }),
	"refresh.shouldLoadDeferredViewsOnAutoRefresh": setBool(func(c *Config) *bool { return &c.Refresh.ShouldLoadDeferredViewsOnAutoRefresh }),
	"refresh.shouldLoadDeferredViewsOnStart":       setBool(func(c *Config) *bool { return &c.Refresh.ShouldLoadDeferredViewsOnStart }),
	"refresh.shouldUseQuickTextRefresh":            setBool(func(c *Config) *bool { return &c.Refresh.ShouldUseQuickTextRefresh }),
	"tmux.socket":                                  setString(func(c *Config) *string { return &c.Tmux.Socket }),
	"tmux.menu_key":                                setString(func(c *Config) *string { return &c.Tmux.MenuKey }),
	"tmux.action_label":                            setString(func(c *Config) *string { return &c.Tmux.ActionLabel }),
	"workspace.theme": func(c *Config, value string) error {
		if !slices.Contains([]string{"auto", "dark", "light"}, value) {
			return fmt.Errorf("expected auto, dark or light, got %q", value)
		}
		c.Workspace.Theme = value
		return nil
	},
	"workspace.glamour_style": setString(func(c *Config) *string { return &c.Workspace.GlamourStyle }),
	"log.level":               setString(func(c *Config) *string { return &c.Log.Level }),
	"log.format":              setString(func(c *Config) *string { return &c.Log.Format }),
	"log.file":                setString(func(c *Config) *string { return &c.Log.File }),
	"journal.enabled":         setBool(func(c *Config) *bool { return &c.Journal.Enabled }),
	"journal.path":            setString(func(c *Config) *string { return &c.Journal.Path }),
}

// Keys returns the settable keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set assigns value to the dotted key. Lists are comma separated.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
