package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/panefresh/internal/clipboard"
	"github.com/theirongolddev/panefresh/internal/config"
	"github.com/theirongolddev/panefresh/internal/logging"
	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/policy"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

// fakeTmux answers tmux invocations from a fixed pane listing.
type fakeTmux struct {
	mu       sync.Mutex
	calls    []string
	panes    string
	noServer bool
}

func (f *fakeTmux) Run(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.Join(args, " "))
	if f.noServer {
		return "", fmt.Errorf("tmux %s: %w", args[0], tmux.ErrNoServer)
	}
	switch args[0] {
	case "list-panes":
		return f.panes, nil
	case "display-message":
		if len(args) == 5 && args[1] == "-p" && args[2] == "-t" {
			return args[3], nil
		}
		return "4242", nil
	}
	return "", nil
}

func (f *fakeTmux) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.ContainsFunc(f.calls, func(c string) bool { return strings.HasPrefix(c, prefix) })
}

type fakeClipboard struct {
	mu     sync.Mutex
	copied []string
}

func (c *fakeClipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = append(c.copied, text)
	return nil
}

func (c *fakeClipboard) Backend() string { return "fake" }

// paneRow builds one list-panes line: id, session, window, type, command,
// path, start command, dead, window active, attached, active, in mode,
// scroll position, file.
func paneRow(fields ...string) string {
	return strings.Join(fields, "|===|")
}

var threePanes = strings.Join([]string{
	paneRow("%1", "work", "@1", "markdown", "glow", "/tmp", "glow README.md", "0", "1", "1", "1", "0", "0", "/tmp/README.md"),
	paneRow("%2", "work", "@1", "", "htop", "/tmp", "htop", "0", "1", "1", "0", "0", "0", ""),
	paneRow("%3", "work", "@2", "logs", "tail", "/var/log", "tail -f app.log", "1", "0", "1", "0", "0", "0", "/var/log/app.log"),
}, "\n")

// setup points the CLI at a fake tmux server, a fake clipboard and a config
// file in a temp dir.
func setup(t *testing.T, panes string) (*fakeTmux, *fakeClipboard, string) {
	t.Helper()
	ft := &fakeTmux{panes: panes}
	fc := &fakeClipboard{}
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	prevClient, prevClip, prevInstalled := newClient, newClipboard, tmuxInstalled
	newClient = func(string) *tmux.Client { return tmux.NewClient(tmux.WithExecutor(ft)) }
	newClipboard = func() (clipboard.Clipboard, error) { return fc, nil }
	tmuxInstalled = func() bool { return true }
	t.Setenv(logging.EnvLogSink, "none")
	t.Setenv("TMUX_PANE", "")
	t.Cleanup(func() {
		newClient, newClipboard, tmuxInstalled = prevClient, prevClip, prevInstalled
		resetFlags()
	})
	resetFlags()
	return ft, fc, cfgPath
}

// resetFlags resets global flags to default values between tests
func resetFlags() {
	jsonOutput = false
	cfgFile = ""
	socket = ""
	cfg = nil
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func cliCode(err error) string {
	var ce *output.CLIError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// TestExecuteHelp verifies that the root command executes successfully
func TestExecuteHelp(t *testing.T) {
	resetFlags()
	rootCmd.SetArgs([]string{"--help"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() with --help failed: %v", err)
	}
	if !strings.Contains(buf.String(), "panefresh") {
		t.Errorf("help output missing program name:\n%s", buf.String())
	}
}

func TestVersionCmd(t *testing.T) {
	_, _, cfgPath := setup(t, "")
	Version = "1.2.3"
	t.Cleanup(func() { Version = "dev" })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default version", []string{"version"}, "panefresh version 1.2.3"},
		{"short version", []string{"version", "--short"}, "1.2.3\n"},
		{"json", []string{"--json", "version", "--short=false"}, `"version": "1.2.3"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			out, err := run(t, cfgPath, tt.args...)
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	_, _, cfgPath := setup(t, "")

	if _, err := run(t, cfgPath, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if _, err := run(t, cfgPath, "config", "init"); err == nil {
		t.Error("second config init should fail without --force")
	}
	if _, err := run(t, cfgPath, "config", "init", "--force"); err != nil {
		t.Errorf("config init --force: %v", err)
	}

	for _, kv := range [][2]string{
		{"refresh.autoRefreshMode", "all-visible-views"},
		{"refresh.autoRefreshIntervalInSeconds", "30"},
		{"refresh.excludeViewTypesForAutoRefresh", "graph, canvas"},
	} {
		if _, err := run(t, cfgPath, "config", "set", kv[0], kv[1]); err != nil {
			t.Fatalf("config set %s: %v", kv[0], err)
		}
	}

	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p, err := loaded.Policy()
	if err != nil {
		t.Fatalf("Policy: %v", err)
	}
	if p.Mode != policy.AllVisibleViews || p.IntervalSeconds != 30 {
		t.Errorf("policy = %s every %ds, want all-visible-views every 30s", p.Mode, p.IntervalSeconds)
	}
	if !slices.Equal(p.ExcludeTypes, []string{"graph", "canvas"}) {
		t.Errorf("ExcludeTypes = %v", p.ExcludeTypes)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"unknown key", []string{"config", "set", "refresh.nope", "1"}},
		{"bad mode", []string{"config", "set", "refresh.autoRefreshMode", "sometimes"}},
		{"negative interval", []string{"config", "set", "refresh.autoRefreshIntervalInSeconds", "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, cfgPath, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}

	out, err := run(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, `autoRefreshMode = "all-visible-views"`) {
		t.Errorf("config show missing mode:\n%s", out)
	}

	out, err = run(t, cfgPath, "config", "path")
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Errorf("config path = %q, %v; want %q", out, err, cfgPath)
	}
}

func TestRefreshPane(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)

	out, err := run(t, cfgPath, "refresh", "pane", "%1")
	if err != nil {
		t.Fatalf("refresh pane: %v", err)
	}
	if !strings.Contains(out, "refreshed pane %1") {
		t.Errorf("output = %q", out)
	}
	for _, want := range []string{
		"send-keys -R -t %1",
		"clear-history -t %1",
		"respawn-pane -k -t %1 -c /tmp glow README.md",
	} {
		if !ft.called(want) {
			t.Errorf("missing tmux call %q in %v", want, ft.calls)
		}
	}
}

func TestRefreshActiveIsDefault(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)

	if _, err := run(t, cfgPath, "refresh"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !ft.called("respawn-pane -k -t %1") {
		t.Errorf("active pane %%1 was not refreshed: %v", ft.calls)
	}
	if ft.called("respawn-pane -k -t %2") {
		t.Error("inactive pane %2 should not be refreshed")
	}
}

func TestRefreshBatches(t *testing.T) {
	tests := []struct {
		name string
		sub  string
		want []string
	}{
		{"visible", "visible", []string{"%1", "%2"}},
		{"all", "all", []string{"%1", "%2", "%3"}},
		// The default policy has the timer off.
		{"auto", "auto", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, cfgPath := setup(t, threePanes)
			out, err := run(t, cfgPath, "--json", "refresh", tt.sub)
			if err != nil {
				t.Fatalf("refresh %s: %v", tt.sub, err)
			}
			var got struct {
				Refreshed []string `json:"refreshed"`
				Failed    []string `json:"failed"`
			}
			if err := json.Unmarshal([]byte(out), &got); err != nil {
				t.Fatalf("decoding %q: %v", out, err)
			}
			if !slices.Equal(got.Refreshed, tt.want) || len(got.Failed) != 0 {
				t.Errorf("refreshed = %v failed = %v, want %v", got.Refreshed, got.Failed, tt.want)
			}
		})
	}
}

func TestRefreshAllMaterializesDeadPanes(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)
	if _, err := run(t, cfgPath, "refresh", "all"); err != nil {
		t.Fatalf("refresh all: %v", err)
	}
	if !ft.called("respawn-pane -t %3") {
		t.Errorf("dead pane was not respawned: %v", ft.calls)
	}
}

func TestRefreshErrors(t *testing.T) {
	noActive := paneRow("%2", "work", "@1", "", "htop", "/tmp", "htop", "0", "1", "1", "0", "0", "0", "")
	shell := paneRow("%4", "work", "@1", "", "zsh", "/tmp", "", "0", "1", "1", "1", "0", "0", "")
	tests := []struct {
		name     string
		panes    string
		noServer bool
		args     []string
		wantCode string
	}{
		{"no server", threePanes, true, []string{"refresh"}, "TMUX_NOT_RUNNING"},
		{"no active pane", noActive, false, []string{"refresh", "active"}, "NO_ACTIVE_PANE"},
		{"unknown pane", threePanes, false, []string{"refresh", "pane", "%9"}, "PANE_NOT_FOUND"},
		{"interactive shell", shell, false, []string{"refresh"}, "NOT_REFRESHABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, _, cfgPath := setup(t, tt.panes)
			ft.noServer = tt.noServer
			_, err := run(t, cfgPath, tt.args...)
			if code := cliCode(err); code != tt.wantCode {
				t.Errorf("error = %v (code %q), want code %q", err, code, tt.wantCode)
			}
			if ft.called("respawn-pane -k") {
				t.Error("failed refresh respawned a pane")
			}
		})
	}

	t.Run("invalid pane id", func(t *testing.T) {
		_, _, cfgPath := setup(t, threePanes)
		if _, err := run(t, cfgPath, "refresh", "pane", "1"); err == nil {
			t.Error("expected an error for a pane id without %")
		}
	})

	t.Run("tmux missing", func(t *testing.T) {
		_, _, cfgPath := setup(t, threePanes)
		tmuxInstalled = func() bool { return false }
		_, err := run(t, cfgPath, "status")
		if code := cliCode(err); code != "TMUX_NOT_INSTALLED" {
			t.Errorf("code = %q, want TMUX_NOT_INSTALLED", code)
		}
	})
}

func TestStatusJSON(t *testing.T) {
	_, _, cfgPath := setup(t, threePanes)
	out, err := run(t, cfgPath, "--json", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var got struct {
		Mode  string `json:"mode"`
		Panes []struct {
			ID       string `json:"id"`
			ViewType string `json:"view_type"`
			Visible  bool   `json:"visible"`
			Strategy string `json:"strategy"`
		} `json:"panes"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if got.Mode != "off" || len(got.Panes) != 3 {
		t.Fatalf("status = %+v", got)
	}
	want := []struct {
		viewType, strategy string
		visible            bool
	}{
		{"markdown", "full", true},
		{"htop", "full", true},
		// Dead panes are lazy and skipped unless the policy loads them.
		{"logs", "skip", false},
	}
	for i, w := range want {
		p := got.Panes[i]
		if p.ViewType != w.viewType || p.Strategy != w.strategy || p.Visible != w.visible {
			t.Errorf("pane %d = %+v, want %+v", i, p, w)
		}
	}
}

func TestStatusText(t *testing.T) {
	_, _, cfgPath := setup(t, threePanes)
	out, err := run(t, cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Auto-refresh: off", "PANE", "%1", "active", "dead"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestMenuShowsRefreshItems(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)
	if _, err := run(t, cfgPath, "menu", "--pane", "%1", "--client", "/dev/pts/3"); err != nil {
		t.Fatalf("menu: %v", err)
	}
	var menu string
	for _, c := range ft.calls {
		if strings.HasPrefix(c, "display-menu") {
			menu = c
		}
	}
	for _, want := range []string{"markdown", "-c /dev/pts/3", "Zoom", "Refresh view", "Copy view type", "menu-action", "--item 3"} {
		if !strings.Contains(menu, want) {
			t.Errorf("display-menu missing %q: %s", want, menu)
		}
	}
}

func TestMenuActions(t *testing.T) {
	t.Run("refresh item", func(t *testing.T) {
		ft, _, cfgPath := setup(t, threePanes)
		if _, err := run(t, cfgPath, "menu-action", "--pane", "%2", "--item", "3"); err != nil {
			t.Fatalf("menu-action: %v", err)
		}
		if !ft.called("respawn-pane -k -t %2") {
			t.Errorf("pane %%2 was not refreshed: %v", ft.calls)
		}
	})

	t.Run("copy item", func(t *testing.T) {
		ft, fc, cfgPath := setup(t, threePanes)
		if _, err := run(t, cfgPath, "menu-action", "--pane", "%1", "--item", "4"); err != nil {
			t.Fatalf("menu-action: %v", err)
		}
		if !slices.Equal(fc.copied, []string{"markdown"}) {
			t.Errorf("copied = %v", fc.copied)
		}
		if !ft.called("display-message -t %1 Copied view type: markdown") {
			t.Errorf("no confirmation message: %v", ft.calls)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		_, _, cfgPath := setup(t, threePanes)
		if _, err := run(t, cfgPath, "menu-action", "--pane", "%1", "--item", "9"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestCopyType(t *testing.T) {
	_, fc, cfgPath := setup(t, threePanes)
	out, err := run(t, cfgPath, "copy-type", "--pane", "%2")
	if err != nil {
		t.Fatalf("copy-type: %v", err)
	}
	if strings.TrimSpace(out) != "htop" {
		t.Errorf("output = %q, want htop", out)
	}
	if !slices.Equal(fc.copied, []string{"htop"}) {
		t.Errorf("copied = %v", fc.copied)
	}
}

func TestTag(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)
	if _, err := run(t, cfgPath, "tag", "%2", "logs", "/var/log/syslog"); err != nil {
		t.Fatalf("tag: %v", err)
	}
	for _, want := range []string{
		"set-option -p -t %2 @panefresh_type logs",
		"set-option -p -t %2 @panefresh_file /var/log/syslog",
	} {
		if !ft.called(want) {
			t.Errorf("missing %q in %v", want, ft.calls)
		}
	}

	if _, err := run(t, cfgPath, "tag", "%9", "logs"); cliCode(err) != "PANE_NOT_FOUND" {
		t.Errorf("tagging an unknown pane: %v", err)
	}
}

func TestDaemonInstallsAndRestores(t *testing.T) {
	ft, _, cfgPath := setup(t, threePanes)
	cfgFile = cfgPath
	cfg = config.Default()
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.jsonl")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runDaemon(ctx, daemonOptions{poll: time.Hour, bind: true, debounce: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("runDaemon: %v", err)
	}

	for _, want := range []string{
		"bind-key -T root MouseDown3Pane run-shell -b -t =",
		"bind-key -T prefix R run-shell -b",
		"set-option -p -t %1 @panefresh_action",
		"set-option -p -u -t %1 @panefresh_action",
		"unbind-key -T root MouseDown3Pane",
		"unbind-key -T prefix R",
		"set-option -gu pane-border-format",
	} {
		if !ft.called(want) {
			t.Errorf("missing tmux call %q", want)
		}
	}
}

func TestReloadPolicy(t *testing.T) {
	logger, _, _ := logging.New(logging.Options{Sink: "none"})
	store := policy.NewStore(policy.Default())

	next := config.Default()
	next.Refresh.AutoRefreshMode = "all-open-views"
	next.Refresh.AutoRefreshIntervalInSeconds = 5
	reloadPolicy(store, next, nil, logger)
	if got := store.Get(); got.Mode != policy.AllOpenViews || got.IntervalSeconds != 5 {
		t.Errorf("policy after reload = %+v", got)
	}

	reloadPolicy(store, config.Default(), errors.New("bad toml"), logger)
	if store.Get().Mode != policy.AllOpenViews {
		t.Error("a failed reload must keep the current policy")
	}
}

func TestPaneFiles(t *testing.T) {
	got := paneFiles([]tmux.PaneInfo{
		{ID: "%1", File: "/a"},
		{ID: "%2"},
		{ID: "%3", File: "/b"},
		{ID: "%4", File: "/a"},
	})
	if !slices.Equal(got, []string{"/a", "/b"}) {
		t.Errorf("paneFiles = %v", got)
	}
}

func TestLogMode(t *testing.T) {
	tests := []struct {
		args []string
		want logging.Mode
	}{
		{[]string{"daemon"}, logging.ModeDaemon},
		{[]string{"open"}, logging.ModeTUI},
		{[]string{"refresh", "visible"}, logging.ModeCLI},
	}
	for _, tt := range tests {
		cmd, _, err := rootCmd.Find(tt.args)
		if err != nil {
			t.Fatalf("Find(%v): %v", tt.args, err)
		}
		if got := logMode(cmd); got != tt.want {
			t.Errorf("logMode(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestSelfArgs(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	cfgFile = "/etc/panefresh.toml"
	cfg = config.Default()
	cfg.Tmux.Socket = "work"

	got := selfArgs()
	if len(got) != 5 || !slices.Equal(got[1:], []string{"--config", "/etc/panefresh.toml", "--socket", "work"}) {
		t.Errorf("selfArgs() = %v", got)
	}
}
