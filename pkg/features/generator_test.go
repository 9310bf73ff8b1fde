package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

func TestGenerateLabelFollowsIndependentGroup(t *testing.T) {
	f, err := Generate(Config{Seed: 42, Samples: 100, Features: 20, Independent: 2, Derived: 10})
	require.NoError(t, err)

	f0, _ := f.Column("feature_0")
	f1, _ := f.Column("feature_1")
	target, ok := f.Column(LabelColumn)
	require.True(t, ok)

	for i := 0; i < f.NumRows(); i++ {
		want := 0.0
		if f0.Values[i]+f1.Values[i] > 0 {
			want = 1
		}
		assert.Equal(t, want, target.Values[i], "row %d", i)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a, err := Generate(cfg)
	require.NoError(t, err)
	b, err := Generate(cfg)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	cfg.Seed = 7
	c, err := Generate(cfg)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestGenerateShape(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"reference", Config{Seed: 1, Samples: 100, Features: 20, Independent: 2, Derived: 10}},
		{"no derived", Config{Seed: 1, Samples: 10, Features: 5, Independent: 2, Derived: 0}},
		{"no noise", Config{Seed: 1, Samples: 10, Features: 5, Independent: 2, Derived: 3}},
		{"independent only", Config{Seed: 1, Samples: 1, Features: 2, Independent: 2}},
		{"wide independent", Config{Seed: 1, Samples: 7, Features: 12, Independent: 5, Derived: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Generate(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.cfg.Features+1, f.NumCols())
			assert.Equal(t, tt.cfg.Samples, f.NumRows())
			assert.Empty(t, f.DuplicateNames())

			names := f.Names()
			for i := 0; i < tt.cfg.Features; i++ {
				assert.Equal(t, FeatureName(i), names[i])
			}
			assert.Equal(t, LabelColumn, names[len(names)-1])
		})
	}
}

// Each derived column is a fixed combination a*feature_0 + b*feature_1 when
// the independent group has two columns.
func TestDerivedColumnsAreLinearInIndependentGroup(t *testing.T) {
	f, err := Generate(Config{Seed: 3, Samples: 50, Features: 8, Independent: 2, Derived: 4})
	require.NoError(t, err)
	x0, _ := f.Column("feature_0")
	x1, _ := f.Column("feature_1")

	det := x0.Values[0]*x1.Values[1] - x0.Values[1]*x1.Values[0]
	require.NotZero(t, det)

	for j := 2; j < 6; j++ {
		d, _ := f.Column(FeatureName(j))
		a := (d.Values[0]*x1.Values[1] - d.Values[1]*x1.Values[0]) / det
		b := (x0.Values[0]*d.Values[1] - x0.Values[1]*d.Values[0]) / det
		for i := range d.Values {
			assert.InDelta(t, a*x0.Values[i]+b*x1.Values[i], d.Values[i], 1e-6)
		}
	}
}

func TestGenerateRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero samples", Config{Samples: 0, Features: 4, Independent: 2}},
		{"negative samples", Config{Samples: -1, Features: 4, Independent: 2}},
		{"groups exceed total", Config{Samples: 10, Features: 4, Independent: 2, Derived: 3}},
		{"single independent", Config{Samples: 10, Features: 4, Independent: 1}},
		{"negative derived", Config{Samples: 10, Features: 4, Independent: 2, Derived: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.cfg)
			require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
		})
	}
}

func TestNoiseColumnsAreFinite(t *testing.T) {
	f, err := Generate(DefaultConfig())
	require.NoError(t, err)
	for _, c := range f.Columns() {
		for _, v := range c.Values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), c.Name)
		}
	}
}
