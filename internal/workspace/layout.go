package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/panefresh/internal/host"
)

// Pane types a layout can open.
const (
	TypeMarkdown = "markdown"
	TypeText     = "text"
	TypePreview  = "preview"
	TypeDiff     = "diff"
)

// PaneDef defines a single pane within a layout tab.
type PaneDef struct {
	ID   string `yaml:"id,omitempty"`
	Type string `yaml:"type"`
	File string `yaml:"file,omitempty"`
	// Mode is "source" or "live" for editor panes.
	Mode string `yaml:"mode,omitempty"`
	// Lazy defers loading the pane until its tab is shown or it is refreshed.
	Lazy bool `yaml:"lazy,omitempty"`
}

// TabDef is a named group of panes shown side by side.
type TabDef struct {
	Name  string    `yaml:"name"`
	Panes []PaneDef `yaml:"panes"`
}

// Layout is a workspace definition.
type Layout struct {
	Name string   `yaml:"name,omitempty"`
	Tabs []TabDef `yaml:"tabs"`
	// Dir resolves relative file paths. Set from the layout file location.
	Dir string `yaml:"-"`
}

// LoadLayout reads a layout file. Relative pane files are resolved against
// the file's directory.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	l.Dir = abs
	l.resolve()
	return l, nil
}

// ParseLayout decodes and validates a layout.
func ParseLayout(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	l.assignIDs()
	return &l, nil
}

// Validate checks pane types, files and modes.
func (l *Layout) Validate() error {
	if len(l.Tabs) == 0 {
		return errors.New("layout has no tabs")
	}
	seen := map[string]bool{}
	for ti, tab := range l.Tabs {
		if len(tab.Panes) == 0 {
			return fmt.Errorf("tab %d (%s) has no panes", ti+1, tab.Name)
		}
		for pi, p := range tab.Panes {
			where := fmt.Sprintf("tab %d pane %d", ti+1, pi+1)
			switch p.Type {
			case TypeMarkdown, TypeText, TypePreview, TypeDiff:
				if p.File == "" {
					return fmt.Errorf("%s: %s pane needs a file", where, p.Type)
				}
			case host.EmptyViewType:
			default:
				return fmt.Errorf("%s: unknown pane type %q", where, p.Type)
			}
			if _, err := parseMode(p.Mode); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
			if p.ID != "" {
				if seen[p.ID] {
					return fmt.Errorf("%s: duplicate pane id %q", where, p.ID)
				}
				seen[p.ID] = true
			}
		}
	}
	return nil
}

func (l *Layout) assignIDs() {
	taken := map[string]bool{}
	for _, tab := range l.Tabs {
		for _, p := range tab.Panes {
			if p.ID != "" {
				taken[p.ID] = true
			}
		}
	}
	n := 0
	for ti := range l.Tabs {
		for pi := range l.Tabs[ti].Panes {
			p := &l.Tabs[ti].Panes[pi]
			for p.ID == "" {
				n++
				if id := fmt.Sprintf("p%d", n); !taken[id] {
					p.ID = id
				}
			}
		}
	}
}

func (l *Layout) resolve() {
	for ti := range l.Tabs {
		for pi := range l.Tabs[ti].Panes {
			p := &l.Tabs[ti].Panes[pi]
			if p.File != "" && !filepath.IsAbs(p.File) {
				p.File = filepath.Join(l.Dir, p.File)
			}
		}
	}
}

func parseMode(s string) (host.DisplayMode, error) {
	switch strings.ToLower(s) {
	case "", "live":
		return host.ModeLive, nil
	case "source":
		return host.ModeSource, nil
	}
	return host.ModeNone, fmt.Errorf("unknown mode %q (want source or live)", s)
}

// isEditorType reports whether panes of the type edit their file.
func isEditorType(t string) bool {
	return t == TypeMarkdown || t == TypeText
}

// displayMode is the mode a pane of type t starts in.
func displayMode(t, mode string) host.DisplayMode {
	switch t {
	case TypePreview:
		return host.ModePreview
	case TypeMarkdown, TypeText:
		m, _ := parseMode(mode)
		return m
	}
	return host.ModeNone
}
