package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/engine"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
	"github.com/xkilldash9x/hnpscan-cli/internal/reporting"
	"github.com/xkilldash9x/hnpscan-cli/internal/results"
)

// newScanCmd creates and configures the `scan` command.
func newScanCmd(app *appState, provider storeProvider) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan <target>",
		Short: "Analyze a PHP source tree or git repository for host header poisoning",
		Long: `Scans the given directory or clones the given git URL and reports data
flows from the Host header into redirect, URL generation, mail and
other sensitive sinks.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so they override config file and
			// environment values with the right precedence.
			bindings := map[string]string{
				"rules.framework":          "framework",
				"rules.file":               "rules",
				"engine.backend":           "backend",
				"engine.read_concurrency":  "read-concurrency",
				"engine.parse_concurrency": "parse-concurrency",
				"analysis.min_confidence":  "min-confidence",
			}
			for key, flag := range bindings {
				if err := app.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-resolve the config now that scan flags are bound.
			cfg, err := config.NewConfigFromViper(app.v)
			if err != nil {
				return err
			}
			app.cfg = cfg

			cfg.Scan.Target = args[0]
			cfg.Scan.Output, _ = cmd.Flags().GetString("output")
			cfg.Scan.Format, _ = cmd.Flags().GetString("format")
			cfg.Scan.Persist, _ = cmd.Flags().GetBool("persist")

			logger.Info("Starting scan.",
				zap.String("target", cfg.Scan.Target),
				zap.String("framework", cfg.Rules.Framework),
				zap.String("backend", cfg.Engine.Backend),
			)

			result, err := engine.New(cfg).Scan(ctx)
			if err != nil {
				return err
			}

			envelope := results.Convert(result)
			results.Prioritize(envelope.Findings)

			if cfg.Scan.Persist {
				if err := persistEnvelope(ctx, cfg, provider, envelope, logger); err != nil {
					return err
				}
			}

			reporter, err := reporting.New(cfg.Scan.Format, cfg.Scan.Output, Version)
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

			summary := results.Summarize(envelope.Findings)
			logger.Info("Scan complete.",
				zap.String("scan_id", envelope.ScanID),
				zap.Int("files_scanned", result.FilesScanned),
				zap.Any("findings", summary),
			)

			if cfg.Scan.Output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Scan %s complete: %d finding(s), report written to %s\n",
					envelope.ScanID, len(envelope.Findings), cfg.Scan.Output)
			}
			return nil
		},
	}

	scanCmd.Flags().StringP("output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	scanCmd.Flags().StringP("format", "f", "text", "Report format: 'text', 'json' or 'sarif'.")
	scanCmd.Flags().Bool("persist", false, "Persist the scan and its findings to the configured database.")

	scanCmd.Flags().String("framework", "", "Rule pack to apply ('auto' detects from the target tree). (Overrides config/env)")
	scanCmd.Flags().String("rules", "", "Path to a custom YAML rules file. (Overrides config/env)")
	scanCmd.Flags().String("backend", "", "Analysis backend: 'native' or 'treesitter'. (Overrides config/env)")
	scanCmd.Flags().Int("read-concurrency", 0, "Concurrent file reads. (Overrides config/env)")
	scanCmd.Flags().Int("parse-concurrency", 0, "Concurrent file parses. (Overrides config/env)")
	scanCmd.Flags().Float64("min-confidence", 0, "Minimum confidence for reported flows. (Overrides config/env)")

	return scanCmd
}

// persistEnvelope stores the scan and its findings through the injected
// provider.
func persistEnvelope(ctx context.Context, cfg *config.Config, provider storeProvider, envelope *schemas.ResultEnvelope, logger *zap.Logger) error {
	findingsStore, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := findingsStore.PersistEnvelope(ctx, envelope); err != nil {
		return fmt.Errorf("failed to persist scan results: %w", err)
	}
	logger.Info("Scan results persisted.", zap.String("scan_id", envelope.ScanID))
	return nil
}
