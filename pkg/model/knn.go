package model

import (
	"errors"

	"github.com/viniciusrubens/featurepipe/pkg/stats"
)

// KNN classifies by majority vote among the K nearest training rows under
// Euclidean distance on standardized features.
type KNN struct {
	K     int
	NJobs int // rows predicted concurrently; <= 1 predicts sequentially

	X           [][]float64 // standardized training rows
	Y           []int
	Scaler      *stats.StandardScaler
	ClassLabels []int
	NFeaturesIn int
}

// NewKNN creates and returns a new KNN model.
func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

func (m *KNN) Name() string { return KindKNN }

func (m *KNN) NFeatures() int { return m.NFeaturesIn }

// Classes returns the sorted labels seen during Fit.
func (m *KNN) Classes() []int { return m.ClassLabels }

// Fit stores the standardized training data.
func (m *KNN) Fit(X [][]float64, y []int) error {
	if err := checkXY("knn", X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		return errors.New("knn: K must be positive")
	}
	m.Scaler = stats.NewStandardScaler()
	m.X = m.Scaler.FitTransform(X)
	m.Y = append([]int(nil), y...)
	m.ClassLabels = uniqueSorted(y)
	m.NFeaturesIn = len(X[0])
	return nil
}

// Predict finds the K nearest neighbours of each row, NJobs rows at a time.
func (m *KNN) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(m.X) == 0 {
		return out
	}
	predictRows(len(X), m.NJobs, func(i int) {
		out[i] = m.predictSingle(m.Scaler.TransformRow(X[i]))
	})
	return out
}

// predictSingle keeps a sorted list of the K closest rows seen so far. Rows
// at equal distance keep training order, and tied votes go to the lowest
// label.
func (m *KNN) predictSingle(xi []float64) int {
	type neighbour struct {
		d     float64
		label int
	}
	nbrs := make([]neighbour, 0, m.K)

	for j, xj := range m.X {
		d := euclidSquared(xi, xj)
		if len(nbrs) == m.K && d >= nbrs[len(nbrs)-1].d {
			continue
		}
		if len(nbrs) < m.K {
			nbrs = append(nbrs, neighbour{})
		}
		k := len(nbrs) - 1
		for k > 0 && nbrs[k-1].d > d {
			nbrs[k] = nbrs[k-1]
			k--
		}
		nbrs[k] = neighbour{d: d, label: m.Y[j]}
	}

	votes := make([]float64, len(m.ClassLabels))
	for _, nb := range nbrs {
		for c, label := range m.ClassLabels {
			if label == nb.label {
				votes[c]++
				break
			}
		}
	}
	return m.ClassLabels[argmax(votes)]
}

// euclidSquared computes the squared Euclidean distance between two vectors.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
