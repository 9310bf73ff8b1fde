// Package trainer fits a classifier on a seeded training partition of a
// frame and scores it on the held-out rows.
package trainer

import (
	"fmt"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/loader"
	"github.com/viniciusrubens/featurepipe/pkg/model"
)

// Options controls one training run.
type Options struct {
	TestFraction float64
	Seed         int64
	// Label names the label column; empty means "target".
	Label string
	// Classifier is fitted in place. Nil means a random forest seeded with
	// Seed.
	Classifier model.Classifier
}

// DefaultOptions mirrors the reference run: 80/20 split, seed 42.
func DefaultOptions() Options {
	return Options{TestFraction: 0.2, Seed: 42, Label: "target"}
}

// Result is the outcome of TrainEvaluate. TestFeatures, TestLabels and
// Predictions are aligned row for row in partition order.
type Result struct {
	Model        model.Classifier
	TestFeatures [][]float64
	TestLabels   []int
	Predictions  []int

	// Probabilities holds per-class probabilities aligned with the model's
	// Classes, or nil when the model does not provide them.
	Probabilities [][]float64

	Accuracy  float64
	Report    model.Report
	TrainSize int
	TestSize  int
}

// TrainEvaluate splits f, fits opts.Classifier on the training rows only
// and predicts the held-out rows only.
func TrainEvaluate(f *dataset.Frame, opts Options) (*Result, error) {
	const op = "trainer.TrainEvaluate"
	label := opts.Label
	if label == "" {
		label = "target"
	}
	X, y, err := f.XY(label)
	if err != nil {
		return nil, errs.Wrap(errs.SchemaError, op, err)
	}
	if f.NumCols() < 2 {
		return nil, errs.New(errs.SchemaError, op, "frame has no predictor columns")
	}

	split, err := loader.TrainTestSplit(X, y, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, err
	}

	clf := opts.Classifier
	if clf == nil {
		clf, err = model.New(model.DefaultKind, model.Params{RandomState: opts.Seed})
		if err != nil {
			return nil, err
		}
	}
	if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, errs.Wrap(errs.InvalidConfiguration, op, fmt.Errorf("fit %s: %w", clf.Name(), err))
	}

	pred := clf.Predict(split.XTest)
	var proba [][]float64
	if pc, ok := clf.(model.ProbaClassifier); ok {
		proba = pc.PredictProba(split.XTest)
	}
	return &Result{
		Model:         clf,
		TestFeatures:  split.XTest,
		TestLabels:    split.YTest,
		Predictions:   pred,
		Probabilities: proba,
		Accuracy:      model.Accuracy(split.YTest, pred),
		Report:        model.NewReport(split.YTest, pred),
		TrainSize:     len(split.XTrain),
		TestSize:      len(split.XTest),
	}, nil
}
