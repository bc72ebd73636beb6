// Package cli defines the crm command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sivaangayarkanni/crm/internal/config"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// NewRootCmd builds the crm command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "crm",
		Short:         "Lead and deal scoring service",
		Long:          "crm scores CRM leads and deals with deterministic heuristics and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default ./crm.yaml)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newScoreCmd())
	rootCmd.AddCommand(newRescoreCmd(opts))
	rootCmd.AddCommand(newExportCmd(opts))

	return rootCmd
}

// Execute runs the command tree against os.Args and returns the exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func validateOutput(output string) error {
	switch output {
	case outputTable, outputJSON:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want %s or %s)", output, outputTable, outputJSON)
}
