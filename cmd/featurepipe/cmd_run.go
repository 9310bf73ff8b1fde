package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viniciusrubens/featurepipe/pkg/artifact"
	"github.com/viniciusrubens/featurepipe/pkg/model"
	"github.com/viniciusrubens/featurepipe/pkg/pipeline"
	"github.com/viniciusrubens/featurepipe/pkg/telemetry"
	"github.com/viniciusrubens/featurepipe/pkg/viz"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate features, store them, train, evaluate and save artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 42, "random seed for generation, split and model")
	f.StringVar(&opts.model, "model", "", "classifier kind: "+strings.Join(model.Kinds(), ", "))
	f.BoolVar(&opts.noPlots, "no-plots", false, "skip feature distribution and correlation plots")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	r := &pipeline.Runner{
		Config:    cfg,
		Artifacts: artifact.NewOS(cfg.Artifacts.Dir),
		Metrics:   telemetry.NewMetrics(),
		Logger:    logger,
	}
	if cfg.Artifacts.Plots {
		r.Visualizer = viz.New()
	}

	res, runErr := r.Run(cmd.Context())
	if cfg.Metrics.File != "" {
		if err := r.Metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn("metrics not written", "file", cfg.Metrics.File, "error", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s\n", res.RunID, res.State)
	if res.Evaluation != nil {
		fmt.Fprintf(out, "model: %s\n", res.Evaluation.Model.Name())
		fmt.Fprintf(out, "accuracy: %.4f\n\n", res.Evaluation.Accuracy)
		fmt.Fprintln(out, res.Evaluation.Report.String())
	}
	if res.RunInfo != nil {
		for _, p := range []string{res.RunInfo.ModelPath, res.RunInfo.PredictionsPath} {
			if p != "" {
				fmt.Fprintf(out, "saved %s\n", p)
			}
		}
	}
	for _, p := range res.Plots {
		fmt.Fprintf(out, "plot %s\n", p)
	}
	return runErr
}
