package cli

import (
	"fmt"

	"github.com/sivaangayarkanni/crm/internal/app"
	"github.com/sivaangayarkanni/crm/internal/export"
	"github.com/sivaangayarkanni/crm/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatParquet = "parquet"
	formatJSON    = "json"
)

// withApp loads configuration, builds the application and closes it once fn returns.
func withApp(cmd *cobra.Command, opts *options, fn func(a *app.App) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close resources", zap.Error(err))
		}
	}()

	return fn(a)
}

func newRescoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rescore",
		Short: "Recompute every lead and deal score once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				stats, err := a.Rescore.RescoreAll(cmd.Context())
				if stats != nil {
					if werr := writeSummary(cmd.OutOrStdout(), "Rescored %d leads and %d deals in %v (%d failed)",
						stats.Leads, stats.Deals, stats.Duration, stats.Failed); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		tenantID string
		dir      string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a tenant's leads and deals",
		Example: `  crm export --tenant acme --dir ./out
  crm export --tenant acme --format json > acme.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatParquet && format != formatJSON {
				return fmt.Errorf("unknown export format %q (want %s or %s)", format, formatParquet, formatJSON)
			}

			return withApp(cmd, opts, func(a *app.App) error {
				exporter := export.NewExporter(a.LeadRepo, a.DealRepo)

				if format == formatJSON {
					_, err := exporter.JSON(cmd.Context(), tenantID, cmd.OutOrStdout())
					return err
				}

				result, err := exporter.Parquet(cmd.Context(), tenantID, dir)
				if err != nil {
					return err
				}
				return writeSummary(cmd.OutOrStdout(), "Wrote %d leads to %s and %d deals to %s",
					result.Leads, result.LeadsPath, result.Deals, result.DealsPath)
			})
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant to export")
	cmd.Flags().StringVar(&dir, "dir", ".", "Output directory for parquet files")
	cmd.Flags().StringVar(&format, "format", formatParquet, "Export format: parquet or json")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
