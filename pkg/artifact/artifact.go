// Package artifact persists the outputs of a run: the fitted model, the
// held-out predictions and the run metadata record. Files live on a go-billy
// filesystem rooted at the artifacts directory; every write truncates.
package artifact

import (
	"bytes"
	"encoding/csv"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/model"
)

// Default locations, relative to the working directory.
const (
	DefaultDir      = "pipeline_runs"
	ModelFile       = "random_forest_model.gob"
	PredictionsFile = "predictions.csv"
	RunInfoFile     = "pipeline_run_info.json"
)

// PredictionsHeader is the first row of a predictions file.
var PredictionsHeader = []string{"ActualValue", "PredictedValue"}

// RunInfo is the metadata record of one run. It is built once, after
// training, and written once.
type RunInfo struct {
	RunID           string  `json:"run_id"`
	ModelType       string  `json:"model_type"`
	ModelPath       string  `json:"model_path"`
	PredictionsPath string  `json:"predictions_path"`
	FeatureStoreURI string  `json:"feature_store_uri"`
	SourceTable     string  `json:"source_table"`
	ModelAccuracy   float64 `json:"model_accuracy"`
}

// Manager reads and writes artifacts under one filesystem root.
type Manager struct {
	fs billy.Filesystem
}

// New returns a Manager over fs.
func New(fs billy.Filesystem) *Manager {
	return &Manager{fs: fs}
}

// NewOS returns a Manager rooted at dir on the local disk. The directory is
// created on first write.
func NewOS(dir string) *Manager {
	return New(osfs.New(dir))
}

// Path returns the location of name as recorded in run metadata.
func (m *Manager) Path(name string) string {
	return m.fs.Join(m.fs.Root(), name)
}

// modelEnvelope is the on-disk model layout: the registry kind followed by
// the classifier's own gob encoding.
type modelEnvelope struct {
	Kind    string
	Payload []byte
}

// SaveModel encodes c and writes it to name. Encoding happens before the
// file is opened, so a SerializationError leaves no file behind.
func (m *Manager) SaveModel(c model.Classifier, name string) error {
	const op = "artifact.SaveModel"
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(c); err != nil {
		return errs.Wrap(errs.SerializationError, op, fmt.Errorf("encode %s: %w", c.Name(), err))
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(modelEnvelope{Kind: c.Name(), Payload: payload.Bytes()}); err != nil {
		return errs.Wrap(errs.SerializationError, op, err)
	}
	return m.write(op, name, buf.Bytes())
}

// LoadModel reads a model written by SaveModel.
func (m *Manager) LoadModel(name string) (model.Classifier, error) {
	const op = "artifact.LoadModel"
	data, err := util.ReadFile(m.fs, name)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, op, err)
	}
	var env modelEnvelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, errs.Wrap(errs.SerializationError, op, err)
	}
	c, err := model.New(env.Kind, model.Params{})
	if err != nil {
		return nil, errs.Wrap(errs.SerializationError, op, err)
	}
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(c); err != nil {
		return nil, errs.Wrap(errs.SerializationError, op, fmt.Errorf("decode %s: %w", env.Kind, err))
	}
	return c, nil
}

// SavePredictions writes one CSV row per held-out sample, in order, under
// PredictionsHeader.
func (m *Manager) SavePredictions(pred, actual []int, name string) error {
	const op = "artifact.SavePredictions"
	if len(pred) != len(actual) {
		return errs.New(errs.SchemaError, op, "%d predictions for %d labels", len(pred), len(actual))
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(PredictionsHeader); err != nil {
		return errs.Wrap(errs.IOError, op, err)
	}
	for i := range pred {
		if err := w.Write([]string{strconv.Itoa(actual[i]), strconv.Itoa(pred[i])}); err != nil {
			return errs.Wrap(errs.IOError, op, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.Wrap(errs.IOError, op, err)
	}
	return m.write(op, name, buf.Bytes())
}

// LoadPredictions reads a file written by SavePredictions.
func (m *Manager) LoadPredictions(name string) (pred, actual []int, err error) {
	const op = "artifact.LoadPredictions"
	data, err := util.ReadFile(m.fs, name)
	if err != nil {
		return nil, nil, errs.Wrap(errs.IOError, op, err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, nil, errs.Wrap(errs.SchemaError, op, err)
	}
	if len(records) == 0 || len(records[0]) != 2 || records[0][0] != PredictionsHeader[0] || records[0][1] != PredictionsHeader[1] {
		return nil, nil, errs.New(errs.SchemaError, op, "missing %v header", PredictionsHeader)
	}
	for _, rec := range records[1:] {
		a, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, nil, errs.Wrap(errs.SchemaError, op, err)
		}
		p, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, nil, errs.Wrap(errs.SchemaError, op, err)
		}
		actual = append(actual, a)
		pred = append(pred, p)
	}
	return pred, actual, nil
}

// SaveRunInfo writes info as an indented JSON document.
func (m *Manager) SaveRunInfo(info RunInfo, name string) error {
	const op = "artifact.SaveRunInfo"
	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return errs.Wrap(errs.SerializationError, op, err)
	}
	return m.write(op, name, append(data, '\n'))
}

// LoadRunInfo reads a document written by SaveRunInfo.
func (m *Manager) LoadRunInfo(name string) (RunInfo, error) {
	const op = "artifact.LoadRunInfo"
	var info RunInfo
	data, err := util.ReadFile(m.fs, name)
	if err != nil {
		return info, errs.Wrap(errs.IOError, op, err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, errs.Wrap(errs.SerializationError, op, err)
	}
	return info, nil
}

// write replaces name with data, creating parent directories as needed.
func (m *Manager) write(op, name string, data []byte) error {
	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return errs.Wrap(errs.IOError, op, err)
		}
	}
	f, err := m.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errs.Wrap(errs.IOError, op, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errs.Wrap(errs.IOError, op, err)
	}
	if err := f.Close(); err != nil {
		return errs.Wrap(errs.IOError, op, err)
	}
	return nil
}
