// Package loader partitions labelled rows into training and held-out sets.
package loader

import (
	"math"
	"math/rand"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

// Split is a disjoint train/test partition. TrainIdx and TestIdx name the
// source rows in partition order.
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []int

	TrainIdx, TestIdx []int
}

// TestSize returns the held-out row count for n rows: ceil(n * fraction).
func TestSize(n int, fraction float64) int {
	// The epsilon keeps products like 10*0.3 from rounding up to 4.
	return int(math.Ceil(float64(n)*fraction - 1e-9))
}

// TrainTestSplit splits X, y into train and test sets by ratio. The test rows
// are the first TestSize entries of a permutation seeded by seed and the
// training rows are the rest, so the same (rows, fraction, seed) always gives
// the same partition. No stratification is applied.
func TrainTestSplit(X [][]float64, y []int, fraction float64, seed int64) (*Split, error) {
	const op = "loader.TrainTestSplit"
	if len(X) != len(y) {
		return nil, errs.New(errs.SchemaError, op, "X has %d rows but y has %d", len(X), len(y))
	}
	if math.IsNaN(fraction) || fraction <= 0 || fraction >= 1 {
		return nil, errs.New(errs.InvalidConfiguration, op, "test fraction %v outside (0, 1)", fraction)
	}
	n := len(X)
	nTest := TestSize(n, fraction)
	if nTest == 0 || n-nTest == 0 {
		return nil, errs.New(errs.InsufficientData, op, "%d rows cannot be split at test fraction %v", n, fraction)
	}

	indices := rand.New(rand.NewSource(seed)).Perm(n)
	s := &Split{
		TestIdx:  indices[:nTest],
		TrainIdx: indices[nTest:],
	}
	s.XTest, s.YTest = gather(X, y, s.TestIdx)
	s.XTrain, s.YTrain = gather(X, y, s.TrainIdx)
	return s, nil
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for k, i := range idx {
		xs[k] = X[i]
		ys[k] = y[i]
	}
	return xs, ys
}
