// Package cmd wires the CLI surface: configuration loading, logging setup
// and the scan/report/frameworks subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/internal/config"
	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// appState carries the viper instance and resolved configuration shared by
// the root command and its subcommands.
type appState struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// newRootCmd builds a fresh root command with isolated state, which keeps
// tests independent of each other. The store provider is injectable so tests
// do not need a live database.
func newRootCmd(provider storeProvider) (*cobra.Command, *appState) {
	app := &appState{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "hnpscan",
		Short: "hnpscan is a static analyzer for PHP host header poisoning.",
		Long: `hnpscan scans PHP source trees for host header poisoning: data flows
from the Host header (and its framework accessors) into redirects, URL
generation, password reset mails and other sensitive sinks.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadViper(); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(app.v)
			if err != nil {
				// Fall back to a minimal logger so the error is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "hnpscan"})
				return err
			}
			app.cfg = cfg

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting hnpscan.", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newScanCmd(app, provider))
	rootCmd.AddCommand(newReportCmd(app, provider))
	rootCmd.AddCommand(newFrameworksCmd())

	return rootCmd, app
}

// loadViper seeds defaults, reads the optional config file and enables
// HNPSCAN_* environment overrides.
func (a *appState) loadViper() error {
	config.SetDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("HNPSCAN")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return nil
}

// Execute runs the CLI with a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, _ := newRootCmd(&defaultStoreProvider{})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed.", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
