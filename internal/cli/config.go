package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/panefresh/internal/config"
	"github.com/theirongolddev/panefresh/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if force {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			created, err := config.CreateDefault(path)
			if err != nil {
				return output.NewCLIError(err.Error()).WithHint("Pass --force to overwrite it")
			}
			return GetFormatter().OutputData(map[string]string{"path": created}, func(w io.Writer) error {
				output.PrintSuccessCheck(w, "Created config file: "+created)
				output.PrintSuccessFooter(w, output.ConfigInitSuggestions(created)...)
				return nil
			})
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return GetFormatter().OutputData(map[string]string{"path": configPath()}, func(w io.Writer) error {
				fmt.Fprintln(w, configPath())
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsJSONOutput() {
				return GetFormatter().JSON(cfg)
			}
			return config.Print(cfg, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value and save the file. A running daemon or
workspace picks up refresh policy changes on its own. Lists are comma
separated.

Examples:
  panefresh config set refresh.autoRefreshMode all-visible-views
  panefresh config set refresh.autoRefreshIntervalInSeconds 30
  panefresh config set refresh.excludeViewTypesForAutoRefresh graph,canvas

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			current, err := config.Load(path)
			if errors.Is(err, os.ErrNotExist) {
				current, err = config.Default(), nil
			}
			if err != nil {
				return output.ConfigError(path, err)
			}
			if err := current.Set(args[0], args[1]); err != nil {
				return output.NewCLIError(err.Error()).WithHint("Run 'panefresh config set --help' for the list of keys")
			}
			if _, err := current.Policy(); err != nil {
				return output.NewCLIError(err.Error()).WithCode("POLICY_INVALID")
			}
			if err := config.Save(path, current); err != nil {
				return err
			}
			return GetFormatter().Success(fmt.Sprintf("%s = %s (%s)", args[0], args[1], path))
		},
	})

	return cmd
}
