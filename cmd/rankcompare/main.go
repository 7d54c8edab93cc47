// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rankcompare CLI: aggregate a query
// across search providers, re-rank with boosts, compare the ranked lists and
// evaluate them against relevance judgments.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rankcompare/internal/config"
	"github.com/pdiddy/rankcompare/internal/logging"
	"github.com/pdiddy/rankcompare/internal/metrics"
	"github.com/pdiddy/rankcompare/internal/provider"
	"github.com/pdiddy/rankcompare/internal/secrets"
	"github.com/pdiddy/rankcompare/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds the state shared by subcommands, filled in by the root
// command's PersistentPreRunE.
var app struct {
	cfg        types.Config
	log        *logrus.Logger
	creds      provider.Credentials
	metrics    *metrics.Metrics
	metricsSrv *http.Server
}

// rootCmd is the base command for the rankcompare CLI.
var rootCmd = &cobra.Command{
	Use:   "rankcompare",
	Short: "Compare how literature search backends rank the same query",
	Long: `rankcompare sends one query to several academic search backends (ADS,
arXiv, Semantic Scholar, OpenAlex), re-ranks the results with configurable
boosts, measures how much the ranked lists agree and scores them against
human relevance judgments.

Provider results are cached; failing providers are retried, fall back to a
simpler request, and are skipped for a cool-down period when they block us.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopMetricsServer()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./rankcompare.yaml or ~/.config/rankcompare/rankcompare.yaml)")
	flags.String("secrets-dir", ".secrets/", "directory holding provider API keys")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs (e.g. :9090)")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Init(viper.GetViper(), cfgFile)
}

// setup reads configuration, builds the logger, loads credentials and
// starts the metrics endpoint when one is configured.
func setup(cmd *cobra.Command, args []string) error {
	used, err := config.Read(viper.GetViper())
	if err != nil {
		return err
	}
	cfg, err := config.Unmarshal(viper.GetViper())
	if err != nil {
		return err
	}
	log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if used != "" {
		log.WithField("file", used).Debug("using config file")
	}

	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	creds, err := secrets.Credentials(secretsDir, log)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.log = log
	app.creds = creds
	app.metrics = metrics.New()

	if cfg.MetricsAddr != "" {
		startMetricsServer(cfg.MetricsAddr)
	}
	return nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	app.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := app.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.log.WithError(err).Error("metrics server stopped")
		}
	}()
	app.log.WithField("addr", addr).Info("serving metrics")
}

func stopMetricsServer() error {
	if app.metricsSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.metricsSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping metrics server: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
