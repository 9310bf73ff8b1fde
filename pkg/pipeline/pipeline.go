// Package pipeline runs one experiment end to end: generate features, write
// them to the feature store and read them back, train and evaluate on the
// re-read table, and save the artifacts.
//
// A run moves through named states in a fixed order and never goes back:
//
//	INIT -> GENERATED -> STORED_AND_VERIFIED -> EVALUATED -> ARTIFACTS_SAVED -> DONE
//
// Generation, storage and training failures stop the run with a
// *StageError. Artifact writes are independent and best effort: a failed
// artifact is reported in Result.ArtifactErrors and the run still reaches
// DONE.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/viniciusrubens/featurepipe/pkg/artifact"
	"github.com/viniciusrubens/featurepipe/pkg/config"
	"github.com/viniciusrubens/featurepipe/pkg/dataset"
	"github.com/viniciusrubens/featurepipe/pkg/errs"
	"github.com/viniciusrubens/featurepipe/pkg/features"
	"github.com/viniciusrubens/featurepipe/pkg/model"
	"github.com/viniciusrubens/featurepipe/pkg/store"
	"github.com/viniciusrubens/featurepipe/pkg/telemetry"
	"github.com/viniciusrubens/featurepipe/pkg/trainer"
	"github.com/viniciusrubens/featurepipe/pkg/viz"
)

var tracer = otel.Tracer("featurepipe.pipeline")

// State is a point in the run sequence.
type State int

const (
	StateInit State = iota
	StateGenerated
	StateStoredAndVerified
	StateEvaluated
	StateArtifactsSaved
	StateDone
)

var stateNames = [...]string{
	StateInit:              "INIT",
	StateGenerated:         "GENERATED",
	StateStoredAndVerified: "STORED_AND_VERIFIED",
	StateEvaluated:         "EVALUATED",
	StateArtifactsSaved:    "ARTIFACTS_SAVED",
	StateDone:              "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// stage names the transition into a state, for logs, spans and metrics.
func stage(to State) string {
	switch to {
	case StateGenerated:
		return "generate"
	case StateStoredAndVerified:
		return "store"
	case StateEvaluated:
		return "train"
	case StateArtifactsSaved:
		return "save_artifacts"
	case StateDone:
		return "record_run"
	}
	return to.String()
}

// Artifact keys used in Result.ArtifactErrors.
const (
	ArtifactModel       = "model"
	ArtifactPredictions = "predictions"
	ArtifactRunInfo     = "run_info"
)

// ErrArtifacts is returned, joined with the individual failures, when the
// run finished but at least one artifact was not saved.
var ErrArtifacts = errors.New("pipeline: artifacts not saved")

// StageError is a fatal failure of the transition From -> To.
type StageError struct {
	From, To State
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FeatureStore is the part of *store.Store the pipeline uses.
type FeatureStore interface {
	Write(ctx context.Context, f *dataset.Frame, table string, mode store.Mode) error
	Read(ctx context.Context, table string) (*dataset.Frame, error)
	Close() error
}

// StoreOpener connects to the store at uri.
type StoreOpener func(ctx context.Context, uri string) (FeatureStore, error)

// OpenStore is the default StoreOpener.
func OpenStore(ctx context.Context, uri string) (FeatureStore, error) {
	s, err := store.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Runner executes runs for one configuration. Nil collaborators get
// defaults: store.Open, an on-disk artifact manager under the configured
// directory, fresh metrics, slog.Default and random UUIDs. A nil Visualizer
// skips plotting.
type Runner struct {
	Config     config.Config
	OpenStore  StoreOpener
	Artifacts  *artifact.Manager
	Visualizer viz.Visualizer
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
	NewRunID   func() string
}

// Result describes how far a run got and what it produced.
type Result struct {
	RunID string
	State State

	// Frame is the table as read back from the store.
	Frame      *dataset.Frame
	Evaluation *trainer.Result
	RunInfo    *artifact.RunInfo
	Plots      []string

	// ArtifactErrors maps an artifact key to its write failure.
	ArtifactErrors map[string]error
}

// Run executes the pipeline once. On a fatal error the returned Result
// carries the last state reached and the error is a *StageError. If only
// artifact writes failed, the Result is in StateDone and the error wraps
// ErrArtifacts.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.defaults()
	res := &Result{RunID: r.NewRunID(), State: StateInit}
	log := r.Logger.With(slog.String("run_id", res.RunID))
	cfg := r.Config

	ctx, span := tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.String("pipeline.run_id", res.RunID),
			attribute.String("pipeline.store_uri", cfg.Store.URI),
			attribute.String("pipeline.model", cfg.Training.Model),
		),
	)
	defer span.End()

	start := time.Now()
	log.Info("pipeline started",
		slog.Int64("seed", cfg.Seed),
		slog.String("store_uri", cfg.Store.URI),
		slog.String("table", cfg.Store.Table),
		slog.String("model", cfg.Training.Model),
	)

	err := r.run(ctx, res, log)
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("pipeline aborted",
			slog.String("state", res.State.String()),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return res, err
	}

	if len(res.ArtifactErrors) > 0 {
		joined := []error{ErrArtifacts}
		for _, key := range []string{ArtifactModel, ArtifactPredictions, ArtifactRunInfo} {
			if e, ok := res.ArtifactErrors[key]; ok {
				joined = append(joined, fmt.Errorf("%s: %w", key, e))
			}
		}
		err = errors.Join(joined...)
		span.SetStatus(codes.Error, "artifacts not saved")
		log.Warn("pipeline finished with artifact failures",
			slog.Int("failed", len(res.ArtifactErrors)),
			slog.Duration("duration", time.Since(start)),
		)
		return res, err
	}

	span.SetStatus(codes.Ok, "")
	log.Info("pipeline finished",
		slog.Float64("accuracy", res.Evaluation.Accuracy),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) defaults() {
	if r.OpenStore == nil {
		r.OpenStore = OpenStore
	}
	if r.Artifacts == nil {
		r.Artifacts = artifact.NewOS(r.Config.Artifacts.Dir)
	}
	if r.Metrics == nil {
		r.Metrics = telemetry.NewMetrics()
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.NewRunID == nil {
		r.NewRunID = uuid.NewString
	}
}

func (r *Runner) run(ctx context.Context, res *Result, log *slog.Logger) error {
	cfg := r.Config

	var generated *dataset.Frame
	err := r.step(ctx, res, log, StateGenerated, func(context.Context) error {
		f, err := features.Generate(cfg.FeatureConfig())
		if err != nil {
			return err
		}
		generated = f
		return nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, res, log, StateStoredAndVerified, func(ctx context.Context) error {
		f, err := r.storeAndVerify(ctx, generated)
		if err != nil {
			return err
		}
		res.Frame = f
		r.Metrics.RowsWritten.Set(float64(f.NumRows()))
		return nil
	})
	if err != nil {
		return err
	}

	r.visualize(ctx, res, log)

	err = r.step(ctx, res, log, StateEvaluated, func(context.Context) error {
		clf, err := model.New(cfg.Training.Model, cfg.ModelParams())
		if err != nil {
			return err
		}
		ev, err := trainer.TrainEvaluate(res.Frame, trainer.Options{
			TestFraction: cfg.Training.TestFraction,
			Seed:         cfg.Seed,
			Label:        cfg.Training.Label,
			Classifier:   clf,
		})
		if err != nil {
			return err
		}
		res.Evaluation = ev
		r.Metrics.Accuracy.Set(ev.Accuracy)
		log.Info("model evaluated",
			slog.String("model", ev.Model.Name()),
			slog.Int("train_rows", ev.TrainSize),
			slog.Int("test_rows", ev.TestSize),
			slog.Float64("accuracy", ev.Accuracy),
		)
		return nil
	})
	if err != nil {
		return err
	}

	saved := make(map[string]bool, 2)
	r.advance(ctx, res, log, StateArtifactsSaved, func(context.Context) {
		ev := res.Evaluation
		r.saveArtifact(res, log, ArtifactModel, cfg.Artifacts.ModelFile, func() error {
			return r.Artifacts.SaveModel(ev.Model, cfg.Artifacts.ModelFile)
		})
		r.saveArtifact(res, log, ArtifactPredictions, cfg.Artifacts.PredictionsFile, func() error {
			return r.Artifacts.SavePredictions(ev.Predictions, ev.TestLabels, cfg.Artifacts.PredictionsFile)
		})
		_, modelFailed := res.ArtifactErrors[ArtifactModel]
		_, predFailed := res.ArtifactErrors[ArtifactPredictions]
		saved[ArtifactModel] = !modelFailed
		saved[ArtifactPredictions] = !predFailed
	})

	r.advance(ctx, res, log, StateDone, func(context.Context) {
		info := artifact.RunInfo{
			RunID:           res.RunID,
			ModelType:       res.Evaluation.Model.Name(),
			FeatureStoreURI: cfg.Store.URI,
			SourceTable:     cfg.Store.Table,
			ModelAccuracy:   res.Evaluation.Accuracy,
		}
		if saved[ArtifactModel] {
			info.ModelPath = r.Artifacts.Path(cfg.Artifacts.ModelFile)
		}
		if saved[ArtifactPredictions] {
			info.PredictionsPath = r.Artifacts.Path(cfg.Artifacts.PredictionsFile)
		}
		res.RunInfo = &info
		r.saveArtifact(res, log, ArtifactRunInfo, cfg.Artifacts.RunInfoFile, func() error {
			return r.Artifacts.SaveRunInfo(info, cfg.Artifacts.RunInfoFile)
		})
	})
	return nil
}

// storeAndVerify replaces the configured table with f and reads it back. The
// returned frame is the re-read one.
func (r *Runner) storeAndVerify(ctx context.Context, f *dataset.Frame) (*dataset.Frame, error) {
	const op = "pipeline.storeAndVerify"
	cfg := r.Config.Store
	st, err := r.OpenStore(ctx, cfg.URI)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	if err := st.Write(ctx, f, cfg.Table, store.ModeReplace); err != nil {
		return nil, err
	}
	got, err := st.Read(ctx, cfg.Table)
	if err != nil {
		return nil, err
	}
	if got.NumRows() != f.NumRows() {
		return nil, errs.New(errs.SchemaError, op, "read %d rows from %q, wrote %d", got.NumRows(), cfg.Table, f.NumRows())
	}
	if !got.Schema().Equal(f.Schema()) {
		return nil, errs.New(errs.SchemaError, op, "columns of %q changed on read: %v", cfg.Table, got.Names())
	}
	return got, nil
}

// visualize renders plots of the re-read frame. Failures are logged and
// counted only.
func (r *Runner) visualize(ctx context.Context, res *Result, log *slog.Logger) {
	if r.Visualizer == nil {
		return
	}
	_, span := tracer.Start(ctx, "pipeline.visualize")
	defer span.End()

	files, err := r.Visualizer.Render(res.Frame, r.Config.Artifacts.Dir)
	res.Plots = files
	if err != nil {
		r.Metrics.VisualizationFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("visualization failed", slog.String("error", err.Error()))
		return
	}
	log.Info("plots written", slog.Any("files", files))
}

func (r *Runner) saveArtifact(res *Result, log *slog.Logger, key, name string, save func() error) {
	if err := save(); err != nil {
		if res.ArtifactErrors == nil {
			res.ArtifactErrors = make(map[string]error)
		}
		res.ArtifactErrors[key] = err
		r.Metrics.ArtifactFailures.WithLabelValues(key).Inc()
		log.Error("artifact not saved",
			slog.String("artifact", key),
			slog.String("file", name),
			slog.String("kind", string(errs.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("artifact saved", slog.String("artifact", key), slog.String("path", r.Artifacts.Path(name)))
}

// advance is step for the best-effort stages. fn reports failures through
// res.ArtifactErrors, so the transition to to always happens.
func (r *Runner) advance(ctx context.Context, res *Result, log *slog.Logger, to State, fn func(context.Context)) {
	err := r.step(ctx, res, log, to, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
	if err != nil {
		panic("pipeline: best-effort stage failed: " + err.Error())
	}
}

// step runs fn as the transition from res.State to to, inside its own span.
// On success res.State advances; on failure it stays put and the error is
// returned as a *StageError.
func (r *Runner) step(ctx context.Context, res *Result, log *slog.Logger, to State, fn func(context.Context) error) error {
	from := res.State
	name := stage(to)
	ctx, span := tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(
			attribute.String("pipeline.from", from.String()),
			attribute.String("pipeline.to", to.String()),
		),
	)
	defer span.End()

	start := time.Now()
	log.Debug("stage started", slog.String("stage", name), slog.String("from", from.String()))
	err := fn(ctx)
	r.Metrics.ObserveStage(name, start)
	if err != nil {
		r.Metrics.RecordFailure(name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("stage failed",
			slog.String("stage", name),
			slog.String("kind", string(errs.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return &StageError{From: from, To: to, Err: err}
	}

	span.SetStatus(codes.Ok, "")
	res.State = to
	log.Info("stage finished",
		slog.String("stage", name),
		slog.String("state", to.String()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
