package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/viniciusrubens/featurepipe/pkg/config"
	"github.com/viniciusrubens/featurepipe/pkg/telemetry"
)

// options holds the flag values shared by every command.
type options struct {
	configPath   string
	logLevel     string
	logFormat    string
	seed         int64
	storeURI     string
	table        string
	artifactsDir string
	model        string
	noPlots      bool
	allRows      bool
	metricsFile  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "featurepipe",
		Short:        "Synthetic feature store and classifier training pipeline",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&opts.storeURI, "store-uri", "", "feature store URI, e.g. sqlite:///feature_store/feature_store.db")
	pf.StringVar(&opts.table, "table", "", "feature table name")
	pf.StringVar(&opts.artifactsDir, "artifacts-dir", "", "directory for model, predictions and run info")

	root.AddCommand(
		newRunCmd(opts),
		newEvaluateCmd(opts),
		newInspectCmd(opts),
	)
	return root
}

// loadConfig reads the config file and environment, then applies the flags
// the user actually set.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("store-uri") {
		cfg.Store.URI = opts.storeURI
	}
	if flags.Changed("table") {
		cfg.Store.Table = opts.table
	}
	if flags.Changed("artifacts-dir") {
		cfg.Artifacts.Dir = opts.artifactsDir
	}
	if flags.Changed("model") {
		cfg.Training.Model = opts.model
	}
	if flags.Changed("no-plots") {
		cfg.Artifacts.Plots = !opts.noPlots
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = opts.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}
	return cfg, cfg.Validate()
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	logger, err := telemetry.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}
