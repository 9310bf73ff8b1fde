package viz

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/features"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestRenderWritesBothPlots(t *testing.T) {
	f, err := features.Generate(features.Config{Seed: 1, Samples: 50, Features: 6, Independent: 2, Derived: 2})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "plots")
	files, err := New().Render(f, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, DistributionsFile), filepath.Join(dir, CorrelationsFile)}, files)

	for _, name := range files {
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic), name)
	}
}

func TestRenderRejectsEmptyFrame(t *testing.T) {
	f, err := dataset.New(dataset.Column{Name: "x"})
	require.NoError(t, err)
	_, err = New().Render(f, t.TempDir())
	require.Error(t, err)
}

func TestCorrGrid(t *testing.T) {
	g := corrGrid{{1, 0.5}, {0.5, 1}}
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	assert.Equal(t, 0.5, g.Z(1, 0))
	assert.Equal(t, 1.0, g.X(1))
}
