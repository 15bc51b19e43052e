package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
	"github.com/xkilldash9x/hnpscan-cli/internal/reporting"
	"github.com/xkilldash9x/hnpscan-cli/internal/results"
	"github.com/xkilldash9x/hnpscan-cli/internal/store"
)

// findingsStore is the slice of the store the CLI needs. The indirection
// lets tests inject a fake instead of a live database.
type findingsStore interface {
	PersistEnvelope(ctx context.Context, envelope *schemas.ResultEnvelope) error
	GetFindingsByScanID(ctx context.Context, scanID string) ([]schemas.Finding, error)
}

// storeProvider creates a findingsStore plus a cleanup function releasing
// its resources.
type storeProvider interface {
	Create(ctx context.Context, cfg *config.Config) (findingsStore, func(), error)
}

// defaultStoreProvider connects to the configured PostgreSQL database.
type defaultStoreProvider struct{}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg *config.Config) (findingsStore, func(), error) {
	logger := observability.GetLogger()
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL is not configured (HNPSCAN_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storeService, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed.")
	}
	return storeService, cleanup, nil
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(app *appState, provider storeProvider) *cobra.Command {
	var scanID string
	var outputPath string
	var format string

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a report for a previously persisted scan",
		Long: `Reads the findings stored for a given scan ID, prioritizes them and
renders a report in the requested format.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), observability.GetLogger(), app.cfg, scanID, outputPath, format, provider)
		},
	}

	reportCmd.Flags().StringVar(&scanID, "scan-id", "", "The ID of the scan to report on (required)")
	_ = reportCmd.MarkFlagRequired("scan-id")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.Flags().StringVarP(&format, "format", "f", "json", "Report format: 'text', 'json' or 'sarif'.")

	return reportCmd
}

// runReport contains the testable core of the report command.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg *config.Config,
	scanID, outputPath, format string,
	provider storeProvider,
) error {
	logger.Info("Generating report.", zap.String("scan_id", scanID))

	findingsStore, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	findings, err := findingsStore.GetFindingsByScanID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("failed to load findings for scan %s: %w", scanID, err)
	}
	results.Prioritize(findings)

	envelope := &schemas.ResultEnvelope{
		ScanID:    scanID,
		Timestamp: time.Now().UTC(),
		Findings:  findings,
	}

	reporter, err := reporting.New(format, outputPath, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(envelope); err != nil {
		reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	logger.Info("Report generated.", zap.String("scan_id", scanID), zap.Int("findings", len(findings)))
	return nil
}
