package model

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"sort"
	"time"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier over numeric features.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => all features, >0 => features sampled per node
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	root      *Node
	classes   []int // sorted class labels, aligned with leaf probabilities
	nFeatures int
}

// Node is a tree node. Internal nodes send x[Feature] <= Threshold left.
// Fields are exported so fitted trees survive gob encoding.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node

	N      int       // training samples that reached the node
	Probas []float64 // class distribution, leaves only
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with sensible defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		RandomState:         time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

func (t *DecisionTreeClassifier) Name() string { return KindDecisionTree }

func (t *DecisionTreeClassifier) NFeatures() int { return t.nFeatures }

// Classes returns the sorted labels seen during Fit.
func (t *DecisionTreeClassifier) Classes() []int { return t.classes }

// Fit trains the tree on every row of X.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if err := checkXY("dtree", X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fit(X, y, idx, uniqueSorted(y), rand.New(rand.NewSource(t.RandomState)))
	return nil
}

// fit grows the tree on the rows named by idx, which may repeat. classes
// must contain every label in y; a forest passes its own list so that all
// trees agree on the probability layout.
func (t *DecisionTreeClassifier) fit(X [][]float64, y []int, idx []int, classes []int, rnd *rand.Rand) {
	pos := make(map[int]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	yc := make([]int, len(y))
	for i, v := range y {
		yc[i] = pos[v]
	}

	b := &treeBuilder{
		t:        t,
		X:        X,
		yc:       yc,
		nClasses: len(classes),
		p:        len(X[0]),
		rnd:      rnd,
		impurity: giniFromCounts,
	}
	if t.Criterion == "entropy" {
		b.impurity = entropyFromCounts
	}
	t.classes = classes
	t.nFeatures = b.p
	t.root = b.build(idx, 0)
}

// Predict returns the most probable class per row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(t.classes) == 0 {
		return out
	}
	for i := range X {
		out[i] = t.classes[argmax(t.predictProbaSingle(X[i]))]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// treeState is the gob layout of a tree.
type treeState struct {
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	Criterion           string
	MaxFeatures         int
	MinImpurityDecrease float64
	RandomState         int64
	Classes             []int
	NFeatures           int
	Root                *Node
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeState{
		MaxDepth:            t.MaxDepth,
		MinSamplesSplit:     t.MinSamplesSplit,
		MinSamplesLeaf:      t.MinSamplesLeaf,
		Criterion:           t.Criterion,
		MaxFeatures:         t.MaxFeatures,
		MinImpurityDecrease: t.MinImpurityDecrease,
		RandomState:         t.RandomState,
		Classes:             t.classes,
		NFeatures:           t.nFeatures,
		Root:                t.root,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(data []byte) error {
	var s treeState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	t.MaxDepth = s.MaxDepth
	t.MinSamplesSplit = s.MinSamplesSplit
	t.MinSamplesLeaf = s.MinSamplesLeaf
	t.Criterion = s.Criterion
	t.MaxFeatures = s.MaxFeatures
	t.MinImpurityDecrease = s.MinImpurityDecrease
	t.RandomState = s.RandomState
	t.classes = s.Classes
	t.nFeatures = s.NFeatures
	t.root = s.Root
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

type treeBuilder struct {
	t        *DecisionTreeClassifier
	X        [][]float64
	yc       []int // labels as positions in t.classes
	nClasses int
	p        int
	rnd      *rand.Rand
	impurity func([]int) float64
}

// splitResult is the best split found for one feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value and the row it came from.
type pair struct {
	v float64
	i int
}

func (b *treeBuilder) build(idx []int, depth int) *Node {
	t := b.t
	node := &Node{N: len(idx)}
	counts := b.counts(idx)

	if isPure(counts) || len(idx) < t.MinSamplesSplit || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return makeLeaf(node, counts)
	}

	parentImpurity := b.impurity(counts)
	best := splitResult{feature: -1}
	// Features are scanned in candidate order and only a strictly larger gain
	// replaces the current best, so equal splits resolve the same way on
	// every run.
	for _, f := range b.candidateFeatures() {
		r := b.bestSplitForFeature(idx, f, counts, parentImpurity)
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return makeLeaf(node, counts)
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

// candidateFeatures returns the features to try at one node: all of them, or
// MaxFeatures drawn without replacement.
func (b *treeBuilder) candidateFeatures() []int {
	feats := make([]int, b.p)
	for j := range feats {
		feats[j] = j
	}
	k := b.t.MaxFeatures
	if k <= 0 || k >= b.p {
		return feats
	}
	for i := 0; i < k; i++ {
		j := i + b.rnd.Intn(b.p-i)
		feats[i], feats[j] = feats[j], feats[i]
	}
	return feats[:k]
}

// bestSplitForFeature scans the sorted values of feature f once, moving one
// row at a time from the right partition to the left.
func (b *treeBuilder) bestSplitForFeature(idx []int, f int, total []int, parentImpurity float64) splitResult {
	result := splitResult{feature: -1}
	n := len(idx)
	minLeaf := max(b.t.MinSamplesLeaf, 1)

	pairs := make([]pair, n)
	for k, i := range idx {
		pairs[k] = pair{b.X[i][f], i}
	}
	sort.Slice(pairs, func(a, c int) bool { return pairs[a].v < pairs[c].v })

	left := make([]int, b.nClasses)
	right := append([]int(nil), total...)
	for s := 1; s < n; s++ {
		c := b.yc[pairs[s-1].i]
		left[c]++
		right[c]--
		lo, hi := pairs[s-1].v, pairs[s].v
		if lo == hi || s < minLeaf || n-s < minLeaf {
			continue
		}
		weighted := (float64(s)*b.impurity(left) + float64(n-s)*b.impurity(right)) / float64(n)
		gain := parentImpurity - weighted
		if gain > result.gain {
			thr := lo + (hi-lo)/2
			if thr >= hi {
				thr = lo
			}
			result = splitResult{gain: gain, feature: f, threshold: thr}
		}
	}
	return result
}

func (b *treeBuilder) counts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.yc[i]]++
	}
	return counts
}

func makeLeaf(node *Node, counts []int) *Node {
	node.Leaf = true
	node.Probas = countsToProbas(counts)
	return node
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 1.0
	for _, c := range counts {
		p := float64(c) / n
		res -= p * p
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}
