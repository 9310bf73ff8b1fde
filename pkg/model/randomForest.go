package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
)

// RandomForest is a bagged ensemble of CART trees with soft voting.
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int // 0 => floor(sqrt(p)), at least 1
	Bootstrap       bool
	NJobs           int // trees fitted concurrently; <= 1 fits sequentially
	RandomState     int64

	// Internal state
	Trees       []*DecisionTreeClassifier
	ClassLabels []int
	NFeaturesIn int
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithNJobs(n int) RandomForestOption       { return func(rf *RandomForest) { rf.NJobs = n } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     0,
		Bootstrap:       true,
		NJobs:           1,
		RandomState:     time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

func (rf *RandomForest) Name() string { return KindRandomForest }

func (rf *RandomForest) NFeatures() int { return rf.NFeaturesIn }

// Classes returns the sorted labels seen during Fit.
func (rf *RandomForest) Classes() []int { return rf.ClassLabels }

// Fit trains NEstimators trees, each on a bootstrap sample of the rows
// addressed by index. Per-tree seeds are drawn up front from RandomState, so
// the fitted forest is the same for any NJobs.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if err := checkXY("randomforest", X, y); err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		return errors.New("randomforest: NEstimators must be positive")
	}
	n, p := len(X), len(X[0])
	classes := uniqueSorted(y)

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(int(math.Sqrt(float64(p))), 1)
	}

	master := rand.New(rand.NewSource(rf.RandomState))
	seeds := make([]int64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(max(rf.NJobs, 1))
	for i := range trees {
		g.Go(func() error {
			treeRand := rand.New(rand.NewSource(seeds[i]))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = treeRand.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMaxFeatures(maxFeatures),
				WithRandomState(seeds[i]),
			)
			tree.fit(X, y, sample, classes, treeRand)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}

	rf.Trees = trees
	rf.ClassLabels = classes
	rf.NFeaturesIn = p
	return nil
}

// PredictProba averages the tree probability vectors per row.
func (rf *RandomForest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	k := len(rf.ClassLabels)
	for i, x := range X {
		acc := make([]float64, k)
		for _, t := range rf.Trees {
			for c, v := range t.predictProbaSingle(x) {
				acc[c] += v
			}
		}
		if len(rf.Trees) > 0 {
			for c := range acc {
				acc[c] /= float64(len(rf.Trees))
			}
		}
		out[i] = acc
	}
	return out
}

// Predict returns the class with the highest mean probability; ties go to
// the lowest label.
func (rf *RandomForest) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(rf.ClassLabels) == 0 {
		return out
	}
	for i, proba := range rf.PredictProba(X) {
		out[i] = rf.ClassLabels[argmax(proba)]
	}
	return out
}
