package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theirongolddev/panefresh/internal/host"
)

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout([]byte(`
name: notes
tabs:
  - name: write
    panes:
      - type: markdown
        file: notes.md
      - id: pv
        type: preview
        file: notes.md
  - name: later
    panes:
      - type: text
        file: todo.txt
        mode: source
        lazy: true
`))
	if err != nil {
		t.Fatalf("ParseLayout() error = %v", err)
	}
	if l.Name != "notes" || len(l.Tabs) != 2 {
		t.Fatalf("layout = %+v", l)
	}
	got := []string{l.Tabs[0].Panes[0].ID, l.Tabs[0].Panes[1].ID, l.Tabs[1].Panes[0].ID}
	want := []string{"p1", "pv", "p2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids = %v, want %v", got, want)
			break
		}
	}
	if !l.Tabs[1].Panes[0].Lazy {
		t.Error("lazy flag lost")
	}
}

func TestParseLayoutErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no tabs", "name: x\n", "no tabs"},
		{"empty tab", "tabs:\n  - name: a\n", "has no panes"},
		{"unknown type", "tabs:\n  - panes:\n      - type: video\n        file: a\n", "unknown pane type"},
		{"missing file", "tabs:\n  - panes:\n      - type: markdown\n", "needs a file"},
		{"bad mode", "tabs:\n  - panes:\n      - type: text\n        file: a\n        mode: wysiwyg\n", "unknown mode"},
		{"duplicate id", "tabs:\n  - panes:\n      - {id: a, type: empty}\n      - {id: a, type: empty}\n", "duplicate pane id"},
		{"bad yaml", "tabs: [", "parsing layout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayout([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseLayout() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadLayoutResolvesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	abs := filepath.Join(dir, "elsewhere", "b.md")
	data := "tabs:\n  - panes:\n      - {type: markdown, file: a.md}\n      - {type: text, file: " + abs + "}\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}
	if got := l.Tabs[0].Panes[0].File; got != filepath.Join(dir, "a.md") {
		t.Errorf("relative file = %q", got)
	}
	if got := l.Tabs[0].Panes[1].File; got != abs {
		t.Errorf("absolute file = %q", got)
	}
}

func TestDisplayMode(t *testing.T) {
	tests := []struct {
		typ, mode string
		want      host.DisplayMode
	}{
		{TypeMarkdown, "", host.ModeLive},
		{TypeText, "source", host.ModeSource},
		{TypePreview, "", host.ModePreview},
		{TypeDiff, "", host.ModeNone},
		{host.EmptyViewType, "", host.ModeNone},
	}
	for _, tt := range tests {
		if got := displayMode(tt.typ, tt.mode); got != tt.want {
			t.Errorf("displayMode(%q, %q) = %v, want %v", tt.typ, tt.mode, got, tt.want)
		}
	}
}
