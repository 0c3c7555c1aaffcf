package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/events"
	"github.com/theirongolddev/panefresh/internal/output"
	"github.com/theirongolddev/panefresh/internal/policy"
	"github.com/theirongolddev/panefresh/internal/refresh"
	"github.com/theirongolddev/panefresh/internal/tmux"
)

func newStatusCmd() *cobra.Command {
	var recent int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tmux panes and what the timer would do with them",
		Long: `List every tmux pane with its view type, backing file and the
refresh strategy the auto-refresh timer would use.

Examples:
  panefresh status
  panefresh status --events 20    # also show the last refresh events
  panefresh status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h, err := tmuxHost(ctx)
			if err != nil {
				return err
			}
			pol := policyStore().Get()

			st := statusOutput{Policy: pol}
			for _, p := range h.Panes() {
				tp := p.(*tmux.Pane)
				st.Panes = append(st.Panes, paneStatus{
					info:     tp.Info(),
					Strategy: refresh.Classify(p, pol).String(),
				})
			}
			if recent > 0 && cfg.Journal.Path != "" {
				entries, err := events.ReadJournal(cfg.Journal.Path, recent)
				if err != nil {
					return fmt.Errorf("reading journal: %w", err)
				}
				st.Events = entries
			}
			return GetFormatter().Output(st)
		},
	}
	cmd.Flags().IntVarP(&recent, "events", "e", 0, "Show the last N journal events")
	return cmd
}

type paneStatus struct {
	info     tmux.PaneInfo
	Strategy string
}

type statusOutput struct {
	Policy policy.Policy
	Panes  []paneStatus
	Events []events.Entry
}

type paneJSON struct {
	ID       string `json:"id"`
	Session  string `json:"session"`
	ViewType string `json:"view_type"`
	File     string `json:"file,omitempty"`
	Visible  bool   `json:"visible"`
	Active   bool   `json:"active"`
	Dead     bool   `json:"dead"`
	Strategy string `json:"strategy"`
}

func (s statusOutput) JSON() any {
	panes := make([]paneJSON, 0, len(s.Panes))
	for _, p := range s.Panes {
		panes = append(panes, paneJSON{
			ID:       p.info.ID,
			Session:  p.info.Session,
			ViewType: p.info.ViewType(),
			File:     p.info.File,
			Visible:  p.info.Visible(),
			Active:   p.info.Active,
			Dead:     p.info.Dead,
			Strategy: p.Strategy,
		})
	}
	return struct {
		Mode            string         `json:"mode"`
		IntervalSeconds int            `json:"interval_seconds"`
		Panes           []paneJSON     `json:"panes"`
		Events          []events.Entry `json:"events,omitempty"`
	}{s.Policy.Mode.String(), s.Policy.IntervalSeconds, panes, s.Events}
}

func (s statusOutput) Text(w io.Writer) error {
	timer := "off"
	if d, ok := s.Policy.Timer(); ok {
		timer = fmt.Sprintf("%s every %s", s.Policy.Mode, d)
	}
	fmt.Fprintf(w, "Auto-refresh: %s\n\n", timer)

	if len(s.Panes) == 0 {
		fmt.Fprintln(w, "No panes")
	} else {
		t := output.NewTable(w, "PANE", "SESSION", "TYPE", "STATE", "STRATEGY", "FILE")
		for _, p := range s.Panes {
			t.AddRow(p.info.ID, p.info.Session, p.info.ViewType(), paneState(p.info), p.Strategy, p.info.File)
		}
		t.Render()
	}

	if len(s.Events) > 0 {
		fmt.Fprintln(w)
		t := output.NewTable(w, "TIME", "EVENT", "DETAIL")
		for _, e := range s.Events {
			t.AddRow(e.Timestamp.Local().Format(time.TimeOnly), e.Type, output.Truncate(eventDetail(e.Data), 60))
		}
		t.Render()
	}
	return nil
}

func paneState(p tmux.PaneInfo) string {
	var parts []string
	if p.Active && p.Visible() {
		parts = append(parts, "active")
	} else if p.Visible() {
		parts = append(parts, "visible")
	}
	if p.Dead {
		parts = append(parts, "dead")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// eventDetail shows the pane or trigger of a journal entry.
func eventDetail(data json.RawMessage) string {
	var d struct {
		PaneID    string   `json:"pane_id"`
		Strategy  string   `json:"strategy"`
		Error     string   `json:"error"`
		Trigger   string   `json:"trigger"`
		Refreshed []string `json:"refreshed"`
		Failed    []string `json:"failed"`
		Path      string   `json:"path"`
		Mode      string   `json:"mode"`
	}
	if json.Unmarshal(data, &d) != nil {
		return ""
	}
	switch {
	case d.Trigger != "":
		return fmt.Sprintf("%s: %d refreshed, %d failed", d.Trigger, len(d.Refreshed), len(d.Failed))
	case d.Error != "":
		return d.PaneID + " " + d.Error
	case d.PaneID != "":
		return strings.TrimSpace(d.PaneID + " " + d.Strategy)
	case d.Path != "":
		return d.Path
	}
	return d.Mode
}
