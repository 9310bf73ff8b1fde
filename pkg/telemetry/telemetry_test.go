package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciusrubens/featurepipe/pkg/errs"
)

func TestMetricsAreIsolated(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RowsWritten.Set(100)
	assert.Equal(t, 100.0, testutil.ToFloat64(a.RowsWritten))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsWritten))
}

func TestRecordFailureUsesKind(t *testing.T) {
	m := NewMetrics()
	m.RecordFailure("store", errs.New(errs.TableNotFound, "store.Read", "gone"))
	m.RecordFailure("store", assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("store", "TABLE_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("store", "UNKNOWN")))
}

func TestObserveStage(t *testing.T) {
	m := NewMetrics()
	m.ObserveStage("generate", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.Accuracy.Set(0.9)
	m.ArtifactFailures.WithLabelValues("predictions").Inc()

	path := filepath.Join(t.TempDir(), "out", "metrics.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "featurepipe_model_accuracy 0.9")
	assert.Contains(t, string(data), `featurepipe_artifact_failures_total{artifact="predictions"} 1`)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&buf, "info", "json")
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("stage done", "stage", "generate")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "generate", rec["stage"])

	buf.Reset()
	log, err = NewLogger(&buf, "debug", "text")
	require.NoError(t, err)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")

	_, err = NewLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
