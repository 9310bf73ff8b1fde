// Package model holds the classifiers the trainer can fit. Every classifier
// works on row-major float predictors and integer class labels, and is
// deterministic for a given RandomState.
package model

// Classifier is a supervised classifier over integer labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	// Name is the registry kind the classifier was built from.
	Name() string
	// NFeatures is the predictor count seen by Fit, 0 before fitting.
	NFeatures() int
}

// ProbaClassifier additionally exposes per-class probabilities aligned with
// Classes.
type ProbaClassifier interface {
	Classifier
	PredictProba(X [][]float64) [][]float64
	Classes() []int
}
