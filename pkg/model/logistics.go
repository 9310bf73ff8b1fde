package model

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/viniciusrubens/featurepipe/pkg/nn"
	"github.com/viniciusrubens/featurepipe/pkg/optim"
	"github.com/viniciusrubens/featurepipe/pkg/stats"
)

// LogisticRegression is a binary classifier trained with mini-batch SGD on
// standardized inputs. The larger of the two labels is the positive class.
type LogisticRegression struct {
	W           []float64 // weights
	B           float64   // bias
	Lr          float64
	Epochs      int
	BatchSize   int
	RandomState int64
	NJobs       int // rows predicted concurrently; <= 1 predicts sequentially

	Scaler      *stats.StandardScaler
	ClassLabels []int
	NFeaturesIn int
}

// NewLogisticRegression returns an unfitted model with default
// hyperparameters.
func NewLogisticRegression(seed int64) *LogisticRegression {
	return &LogisticRegression{
		Lr:          0.1,
		Epochs:      200,
		BatchSize:   16,
		RandomState: seed,
	}
}

func (m *LogisticRegression) Name() string { return KindLogistic }

func (m *LogisticRegression) NFeatures() int { return m.NFeaturesIn }

// Classes returns the sorted labels seen during Fit.
func (m *LogisticRegression) Classes() []int { return m.ClassLabels }

// Fit trains the model. Rows are reshuffled every epoch from a stream seeded
// by RandomState, which also draws the initial weights.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if err := checkXY("logistic", X, y); err != nil {
		return err
	}
	if m.Lr <= 0 || m.Epochs <= 0 || m.BatchSize <= 0 {
		return errors.New("logistic: learning rate, epochs and batch size must be positive")
	}
	classes := uniqueSorted(y)
	if len(classes) > 2 {
		return fmt.Errorf("logistic: binary labels only, got %d classes", len(classes))
	}

	m.ClassLabels = classes
	m.NFeaturesIn = len(X[0])
	m.Scaler = stats.NewStandardScaler()
	Xs := m.Scaler.FitTransform(X)

	n, p := len(Xs), len(Xs[0])
	target := make([]float64, n)
	if len(classes) == 2 {
		for i, v := range y {
			if v == classes[1] {
				target[i] = 1
			}
		}
	}

	rnd := rand.New(rand.NewSource(m.RandomState))
	// Small random weights break symmetry.
	m.W = make([]float64, p)
	for j := range m.W {
		m.W[j] = rnd.NormFloat64() * 0.01
	}
	m.B = 0

	opt := optim.NewSGD(m.Lr)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	gW := make([]float64, p)
	for ep := 0; ep < m.Epochs; ep++ {
		rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		for start := 0; start < n; start += m.BatchSize {
			batch := order[start:min(start+m.BatchSize, n)]

			// Forward pass.
			proba := make([]float64, len(batch))
			yb := make([]float64, len(batch))
			for k, i := range batch {
				proba[k] = nn.Sigmoid(m.logit(Xs[i]))
				yb[k] = target[i]
			}
			_, dy := nn.BCE(yb, proba)

			// Backward pass.
			for j := range gW {
				gW[j] = 0
			}
			gb := 0.0
			for k, i := range batch {
				for j, xij := range Xs[i] {
					gW[j] += dy[k] * xij
				}
				gb += dy[k]
			}
			opt.Step(m.W, gW)
			m.B = opt.StepScalar(m.B, gb)
		}
	}
	return nil
}

func (m *LogisticRegression) logit(xs []float64) float64 {
	sum := m.B
	for j, v := range xs {
		sum += m.W[j] * v
	}
	return sum
}

// positiveProba returns p(y = positive class) per row.
func (m *LogisticRegression) positiveProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(m.W) == 0 {
		return out
	}
	predictRows(len(X), m.NJobs, func(i int) {
		out[i] = nn.Sigmoid(m.logit(m.Scaler.TransformRow(X[i])))
	})
	return out
}

// PredictProba returns [p(neg), p(pos)] per row, or [1] when Fit saw a
// single class.
func (m *LogisticRegression) PredictProba(X [][]float64) [][]float64 {
	pos := m.positiveProba(X)
	out := make([][]float64, len(X))
	for i, p := range pos {
		if len(m.ClassLabels) < 2 {
			out[i] = []float64{1}
			continue
		}
		out[i] = []float64{1 - p, p}
	}
	return out
}

// Predict thresholds the positive probability at 0.5.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(m.ClassLabels) == 0 {
		return out
	}
	lo, hi := m.ClassLabels[0], m.ClassLabels[len(m.ClassLabels)-1]
	for i, p := range m.positiveProba(X) {
		if p >= 0.5 {
			out[i] = hi
		} else {
			out[i] = lo
		}
	}
	return out
}
