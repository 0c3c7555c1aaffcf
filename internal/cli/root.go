// Package cli implements the panefresh command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/config"
	"github.com/theirongolddev/panefresh/internal/logging"
	"github.com/theirongolddev/panefresh/internal/output"
)

var (
	cfgFile string
	cfg     *config.Config
	socket  string

	// Global JSON output flag - inherited by all subcommands
	jsonOutput bool

	closeLog func() error

	// Build information - set by goreleaser via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
	BuiltBy = "unknown"
)

// annotationLogMode selects the logging mode of a command: "daemon" or
// "tui". Everything else logs like a short-lived CLI command.
const annotationLogMode = "log-mode"

var rootCmd = &cobra.Command{
	Use:   "panefresh",
	Short: "Keep terminal panes in sync with the files behind them",
	Long: `panefresh refreshes views when the files they show change.

It drives two hosts: the panes of a running tmux server, and a built-in
workspace of markdown, text, preview and diff panes.

Quick Start:
  panefresh config init                 # Write the default policy
  panefresh daemon                      # Keep tmux panes fresh
  panefresh refresh visible             # Refresh every visible pane once
  panefresh open notes.yaml             # Open a workspace layout`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, loadErr := config.LoadOrDefault(configPath())
		cfg = loaded
		if socket != "" {
			cfg.Tmux.Socket = socket
		}

		closeFn, err := logging.Init(logging.Options{
			Mode:       logMode(cmd),
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			Version:    Version,
		})
		if err != nil {
			return err
		}
		closeLog = closeFn

		if loadErr != nil {
			slog.Warn("config unusable, using defaults", "path", configPath(), "error", loadErr)
		}
		if cfg.Migrated {
			slog.Info("config uses legacy refresh keys; 'panefresh config set' rewrites them", "path", configPath())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/panefresh/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&socket, "socket", "L", "", "tmux server socket name")

	rootCmd.AddCommand(
		newRefreshCmd(),
		newStatusCmd(),
		newDaemonCmd(),
		newMenuCmd(),
		newMenuActionCmd(),
		newCopyTypeCmd(),
		newTagCmd(),
		newOpenCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}

// Execute runs the root command and reports a failure in the selected
// output format.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		GetFormatter().WriteError(err)
	}
	if closeLog != nil {
		_ = closeLog()
		closeLog = nil
	}
	return err
}

func logMode(cmd *cobra.Command) logging.Mode {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Annotations[annotationLogMode] {
		case "daemon":
			return logging.ModeDaemon
		case "tui":
			return logging.ModeTUI
		}
	}
	return logging.ModeCLI
}

func configPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	return config.DefaultPath()
}

// selfArgs is the command line tmux runs to call back into panefresh.
func selfArgs() []string {
	exe, err := os.Executable()
	if err != nil {
		exe = "panefresh"
	}
	args := []string{exe}
	if cfgFile != "" {
		args = append(args, "--config", configPath())
	}
	if cfg != nil && cfg.Tmux.Socket != "" {
		args = append(args, "--socket", cfg.Tmux.Socket)
	}
	return args
}

// IsJSONOutput returns true if JSON output is enabled.
func IsJSONOutput() bool {
	return jsonOutput
}

// GetFormatter returns a formatter configured for the current output mode
func GetFormatter() *output.Formatter {
	return output.New(output.WithJSON(jsonOutput), output.WithWriter(rootCmd.OutOrStdout()))
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if short && !IsJSONOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return nil
			}
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				BuiltAt:   Date,
				BuiltBy:   BuiltBy,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			return GetFormatter().Output(info)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"built_at"`
	BuiltBy   string `json:"built_by"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func (v versionInfo) JSON() any { return v }

func (v versionInfo) Text(w io.Writer) error {
	fmt.Fprintf(w, "panefresh version %s\n", v.Version)
	fmt.Fprintf(w, "  commit:    %s\n", v.Commit)
	fmt.Fprintf(w, "  built:     %s\n", v.BuiltAt)
	fmt.Fprintf(w, "  builder:   %s\n", v.BuiltBy)
	fmt.Fprintf(w, "  go:        %s\n", v.GoVersion)
	fmt.Fprintf(w, "  platform:  %s\n", v.Platform)
	return nil
}
