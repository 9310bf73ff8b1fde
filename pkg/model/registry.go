package model

import (
	"sort"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

// Registry kinds. The zero value of a Params field means "use the default".
const (
	KindRandomForest = "RandomForestClassifier"
	KindDecisionTree = "DecisionTreeClassifier"
	KindLogistic     = "LogisticRegression"
	KindKNN          = "KNeighborsClassifier"
)

// DefaultKind is the classifier used when none is configured.
const DefaultKind = KindRandomForest

// Params carries hyperparameters for every registered kind; each kind reads
// the fields that apply to it.
type Params struct {
	RandomState int64

	// Trees.
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	NJobs           int

	// Logistic regression.
	LearningRate float64
	Epochs       int
	BatchSize    int

	// Nearest neighbours.
	K int
}

type factory func(Params) Classifier

var registry = map[string]factory{
	KindRandomForest: func(p Params) Classifier {
		opts := []RandomForestOption{WithForestRandomState(p.RandomState)}
		if p.NEstimators > 0 {
			opts = append(opts, WithNEstimators(p.NEstimators))
		}
		if p.MaxDepth > 0 {
			opts = append(opts, WithForestMaxDepth(p.MaxDepth))
		}
		if p.MinSamplesSplit > 0 {
			opts = append(opts, WithForestMinSamplesSplit(p.MinSamplesSplit))
		}
		if p.MaxFeatures > 0 {
			opts = append(opts, WithForestMaxFeatures(p.MaxFeatures))
		}
		if p.NJobs > 0 {
			opts = append(opts, WithNJobs(p.NJobs))
		}
		return NewRandomForest(opts...)
	},
	KindDecisionTree: func(p Params) Classifier {
		opts := []Option{WithRandomState(p.RandomState)}
		if p.MaxDepth > 0 {
			opts = append(opts, WithMaxDepth(p.MaxDepth))
		}
		if p.MinSamplesSplit > 0 {
			opts = append(opts, WithMinSamplesSplit(p.MinSamplesSplit))
		}
		if p.MaxFeatures > 0 {
			opts = append(opts, WithMaxFeatures(p.MaxFeatures))
		}
		return NewDecisionTreeClassifier(opts...)
	},
	KindLogistic: func(p Params) Classifier {
		m := NewLogisticRegression(p.RandomState)
		if p.LearningRate > 0 {
			m.Lr = p.LearningRate
		}
		if p.Epochs > 0 {
			m.Epochs = p.Epochs
		}
		if p.BatchSize > 0 {
			m.BatchSize = p.BatchSize
		}
		m.NJobs = p.NJobs
		return m
	},
	KindKNN: func(p Params) Classifier {
		k := p.K
		if k <= 0 {
			k = 5
		}
		m := NewKNN(k)
		m.NJobs = p.NJobs
		return m
	},
}

// New builds an unfitted classifier of the given kind.
func New(kind string, p Params) (Classifier, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, errs.New(errs.InvalidConfiguration, "model.New", "unknown classifier %q (known: %v)", kind, Kinds())
	}
	return f(p), nil
}

// Kinds lists the registered classifier kinds in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
