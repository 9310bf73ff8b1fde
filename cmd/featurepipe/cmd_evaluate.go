package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viniciusrubens/featurepipe/pkg/artifact"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/loader"
	"github.com/viniciusrubens/featurepipe/pkg/model"
	"github.com/viniciusrubens/featurepipe/pkg/store"
)

func newEvaluateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a saved model on the held-out rows of the feature table",
		Long: `Replays the seeded train/test split of a run on the stored table and scores
the saved model on the held-out rows, which reproduces the accuracy reported
by run. With --all-rows every stored row is scored, training rows included,
so the accuracy is optimistic.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return evaluate(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 42, "seed of the split to replay")
	f.BoolVar(&opts.allRows, "all-rows", false, "score every stored row, training rows included")
	return cmd
}

func evaluate(cmd *cobra.Command, opts *options) error {
	const op = "evaluate"
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	m := artifact.NewOS(cfg.Artifacts.Dir)
	clf, err := m.LoadModel(cfg.Artifacts.ModelFile)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Store.URI)
	if err != nil {
		return err
	}
	defer st.Close()
	f, err := st.Read(ctx, cfg.Store.Table)
	if err != nil {
		return err
	}
	X, y, err := f.XY(cfg.Training.Label)
	if err != nil {
		return errs.Wrap(errs.SchemaError, op, err)
	}
	if len(X) == 0 {
		return errs.New(errs.InsufficientData, op, "table %q has no rows", cfg.Store.Table)
	}
	if got, want := len(X[0]), clf.NFeatures(); got != want {
		return errs.New(errs.SchemaError, op, "table %q has %d predictors, %s was fitted on %d",
			cfg.Store.Table, got, clf.Name(), want)
	}

	scope := "held-out"
	if opts.allRows {
		scope = "all"
	} else {
		split, err := loader.TrainTestSplit(X, y, cfg.Training.TestFraction, cfg.Seed)
		if err != nil {
			return err
		}
		X, y = split.XTest, split.YTest
	}
	logger.Info("scoring model",
		"model", clf.Name(),
		"table", cfg.Store.Table,
		"rows", len(X),
		"scope", scope,
	)

	pred := clf.Predict(X)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model: %s\n", clf.Name())
	fmt.Fprintf(out, "rows: %d (%s)\n", len(X), scope)
	fmt.Fprintf(out, "accuracy: %.4f\n\n", model.Accuracy(y, pred))
	fmt.Fprintln(out, model.NewReport(y, pred).String())
	return nil
}
