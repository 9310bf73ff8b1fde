package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/model"
)

// failingFS refuses to open one file name for writing.
type failingFS struct {
	billy.Filesystem
	fail string
}

func (f *failingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	if name == f.fail {
		return nil, errors.New("disk full")
	}
	return f.Filesystem.OpenFile(name, flag, perm)
}

// opaque has nothing gob can encode.
type opaque struct{ C chan int }

func (opaque) Fit([][]float64, []int) error { return nil }
func (opaque) Predict(X [][]float64) []int  { return make([]int, len(X)) }
func (opaque) Name() string                 { return "Opaque" }
func (opaque) NFeatures() int               { return 0 }

// unregistered encodes fine but is unknown to the model registry.
type unregistered struct{ V int }

func (*unregistered) Fit([][]float64, []int) error { return nil }
func (*unregistered) Predict(X [][]float64) []int  { return make([]int, len(X)) }
func (*unregistered) Name() string                 { return "Unregistered" }
func (*unregistered) NFeatures() int               { return 0 }

func fittedForest(t *testing.T) (*model.RandomForest, [][]float64) {
	t.Helper()
	X := [][]float64{{0, 1}, {1, 0}, {2, 3}, {3, 2}, {-1, -2}, {-2, -1}}
	y := []int{1, 1, 1, 1, 0, 0}
	rf := model.NewRandomForest(model.WithNEstimators(5), model.WithForestRandomState(3))
	require.NoError(t, rf.Fit(X, y))
	return rf, X
}

func TestModelRoundTrip(t *testing.T) {
	m := New(memfs.New())
	rf, X := fittedForest(t)

	require.NoError(t, m.SaveModel(rf, ModelFile))
	got, err := m.LoadModel(ModelFile)
	require.NoError(t, err)
	assert.Equal(t, model.KindRandomForest, got.Name())
	assert.Equal(t, rf.Predict(X), got.Predict(X))
}

func TestSaveModelSerializationError(t *testing.T) {
	fs := memfs.New()
	m := New(fs)

	err := m.SaveModel(opaque{C: make(chan int)}, ModelFile)
	require.ErrorIs(t, err, errs.ErrSerialization)

	_, statErr := fs.Stat(ModelFile)
	assert.True(t, os.IsNotExist(statErr), "no partial file")
}

func TestLoadModelErrors(t *testing.T) {
	m := New(memfs.New())

	_, err := m.LoadModel("missing.gob")
	assert.ErrorIs(t, err, errs.ErrIO)

	require.NoError(t, m.SaveModel(&unregistered{V: 1}, "odd.gob"))
	_, err = m.LoadModel("odd.gob")
	assert.ErrorIs(t, err, errs.ErrSerialization)

	require.NoError(t, util.WriteFile(m.fs, "junk.gob", []byte("not gob"), 0o644))
	_, err = m.LoadModel("junk.gob")
	assert.ErrorIs(t, err, errs.ErrSerialization)
}

func TestSavePredictions(t *testing.T) {
	fs := memfs.New()
	m := New(fs)

	require.NoError(t, m.SavePredictions([]int{0, 0, 1}, []int{1, 0, 1}, PredictionsFile))
	data, err := util.ReadFile(fs, PredictionsFile)
	require.NoError(t, err)
	assert.Equal(t, "ActualValue,PredictedValue\n1,0\n0,0\n1,1\n", string(data))

	pred, actual, err := m.LoadPredictions(PredictionsFile)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, pred)
	assert.Equal(t, []int{1, 0, 1}, actual)
}

func TestSavePredictionsOverwrites(t *testing.T) {
	m := New(memfs.New())
	require.NoError(t, m.SavePredictions([]int{1, 1, 1, 1}, []int{1, 1, 1, 1}, PredictionsFile))
	require.NoError(t, m.SavePredictions([]int{0}, []int{1}, PredictionsFile))

	pred, actual, err := m.LoadPredictions(PredictionsFile)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, pred)
	assert.Equal(t, []int{1}, actual)
}

func TestSavePredictionsEmpty(t *testing.T) {
	fs := memfs.New()
	m := New(fs)
	require.NoError(t, m.SavePredictions(nil, nil, PredictionsFile))
	data, err := util.ReadFile(fs, PredictionsFile)
	require.NoError(t, err)
	assert.Equal(t, "ActualValue,PredictedValue\n", string(data))
}

func TestSavePredictionsLengthMismatch(t *testing.T) {
	m := New(memfs.New())
	err := m.SavePredictions([]int{1}, []int{1, 0}, PredictionsFile)
	require.ErrorIs(t, err, errs.ErrSchema)
}

func TestLoadPredictionsRejectsForeignCSV(t *testing.T) {
	m := New(memfs.New())
	require.NoError(t, util.WriteFile(m.fs, "other.csv", []byte("a,b\n1,2\n"), 0o644))
	_, _, err := m.LoadPredictions("other.csv")
	require.ErrorIs(t, err, errs.ErrSchema)
}

func TestRunInfoRoundTrip(t *testing.T) {
	m := New(memfs.New())
	info := RunInfo{
		RunID:           "3f1e",
		ModelType:       model.KindRandomForest,
		ModelPath:       "pipeline_runs/random_forest_model.gob",
		PredictionsPath: "pipeline_runs/predictions.csv",
		FeatureStoreURI: "sqlite:///feature_store/feature_store.db",
		SourceTable:     "features",
		ModelAccuracy:   0.85,
	}
	require.NoError(t, m.SaveRunInfo(info, RunInfoFile))

	got, err := m.LoadRunInfo(RunInfoFile)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	data, err := util.ReadFile(m.fs, RunInfoFile)
	require.NoError(t, err)
	for _, key := range []string{"model_type", "model_path", "feature_store_uri", "source_table", "model_accuracy"} {
		assert.Contains(t, string(data), `"`+key+`"`)
	}

	_, err = m.LoadRunInfo("absent.json")
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestWriteFailureIsIOError(t *testing.T) {
	fs := &failingFS{Filesystem: memfs.New(), fail: PredictionsFile}
	m := New(fs)

	err := m.SavePredictions([]int{1}, []int{1}, PredictionsFile)
	require.ErrorIs(t, err, errs.ErrIO)

	// Other artifacts are unaffected.
	rf, _ := fittedForest(t)
	require.NoError(t, m.SaveModel(rf, ModelFile))
	require.NoError(t, m.SaveRunInfo(RunInfo{RunID: "x"}, RunInfoFile))
}

func TestOSManagerCreatesDirectories(t *testing.T) {
	root := filepath.Join(t.TempDir(), "pipeline_runs")
	m := NewOS(root)

	require.NoError(t, m.SavePredictions([]int{1}, []int{0}, "nested/predictions.csv"))
	_, err := os.Stat(filepath.Join(root, "nested", "predictions.csv"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, RunInfoFile), m.Path(RunInfoFile))
}
