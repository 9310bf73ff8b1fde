// Package features synthesizes a tabular dataset with a designed correlation
// structure and a derived binary label.
//
// Columns come in three groups, concatenated in this order:
//
//	independent  standard normal, drives the label
//	derived      independent × uniform coefficient matrix (collinear with it)
//	noise        standard normal, unrelated to the label
//
// The label column "target" is 1 when feature_0 + feature_1 > 0.
package features

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

// LabelColumn is the name of the generated label column.
const LabelColumn = "target"

// Config sizes the generated dataset.
type Config struct {
	Seed        int64
	Samples     int
	Features    int
	Independent int
	Derived     int
}

// DefaultConfig mirrors the reference experiment: 100 rows, 20 features,
// two independent and ten derived columns.
func DefaultConfig() Config {
	return Config{Seed: 42, Samples: 100, Features: 20, Independent: 2, Derived: 10}
}

// Noise returns the size of the noise group.
func (c Config) Noise() int { return c.Features - c.Independent - c.Derived }

// Validate checks the group sizes.
func (c Config) Validate() error {
	const op = "features.Generate"
	switch {
	case c.Samples <= 0:
		return errs.New(errs.InvalidConfiguration, op, "samples must be positive, got %d", c.Samples)
	case c.Independent < 2:
		return errs.New(errs.InvalidConfiguration, op, "need at least 2 independent features for the label, got %d", c.Independent)
	case c.Derived < 0:
		return errs.New(errs.InvalidConfiguration, op, "derived features must be non-negative, got %d", c.Derived)
	case c.Independent+c.Derived > c.Features:
		return errs.New(errs.InvalidConfiguration, op,
			"independent (%d) + derived (%d) exceeds total features (%d)", c.Independent, c.Derived, c.Features)
	}
	return nil
}

// Generate draws the dataset. Identical configs produce identical frames.
func Generate(cfg Config) (*dataset.Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n, g1, g2, g3 := cfg.Samples, cfg.Independent, cfg.Derived, cfg.Noise()
	rnd := rand.New(rand.NewSource(cfg.Seed))

	independent := mat.NewDense(n, g1, normals(rnd, n*g1))

	var derived *mat.Dense
	if g2 > 0 {
		coef := mat.NewDense(g1, g2, uniforms(rnd, g1*g2))
		derived = mat.NewDense(n, g2, nil)
		derived.Mul(independent, coef)
	}

	var noise *mat.Dense
	if g3 > 0 {
		noise = mat.NewDense(n, g3, normals(rnd, n*g3))
	}

	cols := make([]dataset.Column, 0, cfg.Features+1)
	cols = appendColumns(cols, independent)
	cols = appendColumns(cols, derived)
	cols = appendColumns(cols, noise)

	label := make([]float64, n)
	for i := 0; i < n; i++ {
		if independent.At(i, 0)+independent.At(i, 1) > 0 {
			label[i] = 1
		}
	}
	cols = append(cols, dataset.Column{Name: LabelColumn, Kind: dataset.Int, Values: label})

	return dataset.New(cols...)
}

// FeatureName returns the name of predictor column i.
func FeatureName(i int) string { return fmt.Sprintf("feature_%d", i) }

func appendColumns(cols []dataset.Column, m *mat.Dense) []dataset.Column {
	if m == nil {
		return cols
	}
	_, c := m.Dims()
	for j := 0; j < c; j++ {
		cols = append(cols, dataset.Column{
			Name:   FeatureName(len(cols)),
			Kind:   dataset.Float,
			Values: mat.Col(nil, j, m),
		})
	}
	return cols
}

// normals draws k standard normal values, filling row-major.
func normals(rnd *rand.Rand, k int) []float64 {
	out := make([]float64, k)
	for i := range out {
		out[i] = rnd.NormFloat64()
	}
	return out
}

// uniforms draws k values from [0, 1).
func uniforms(rnd *rand.Rand, k int) []float64 {
	out := make([]float64, k)
	for i := range out {
		out[i] = rnd.Float64()
	}
	return out
}
