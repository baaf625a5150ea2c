// Package pipeline turns student records into exam score predictions.
//
// A Pipeline is built once from loaded artifacts and is read-only afterwards, so a
// single instance serves every request. Single records, record slices and batch
// tables all funnel into the same columnwise core:
//
//	encode -> reduce (Attendance, Hours_Studied) -> scale (Previous_Scores, dimension)
//	       -> assemble in model order -> predict
//
// Validation failures are reported as *features.ValidationError before anything is
// transformed; failures inside the opaque artifacts are *features.PipelineError.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/ml"

	"github.com/rs/zerolog/log"
)

// Prediction modes, used as metric labels.
const (
	ModeSingle = "single"
	ModeBatch  = "batch"
)

// Pipeline stages named in PipelineError.Stage.
const (
	StageReducer = "dimension_reducer"
	StageScaler  = "scaler"
	StageModel   = "model"
)

// MetricsInterface defines the metrics the pipeline reports.
type MetricsInterface interface {
	PredictionsAdd(mode string, n int)
	FailuresInc(kind string)
	ValidationErrorsInc(kind string)
	LatencyObserve(mode string, seconds float64)
	BatchRowsObserve(n int)
	ScoreObserve(score float64)
	ModelTrainedAtSet(unixSeconds float64)
}

type nopMetrics struct{}

func (nopMetrics) PredictionsAdd(string, int)     {}
func (nopMetrics) FailuresInc(string)             {}
func (nopMetrics) ValidationErrorsInc(string)     {}
func (nopMetrics) LatencyObserve(string, float64) {}
func (nopMetrics) BatchRowsObserve(int)           {}
func (nopMetrics) ScoreObserve(float64)           {}
func (nopMetrics) ModelTrainedAtSet(float64)      {}

// Pipeline composes the feature preparation steps with the prediction service.
type Pipeline struct {
	artifacts *ml.Artifacts
	reducer   *Reducer
	scaler    *Scaler
	assembler *Assembler
	service   *Service
	metrics   MetricsInterface
}

// derived holds the intermediate columns of one run.
type derived struct {
	dimension       []float64
	scaledPrevious  []float64
	scaledDimension []float64
}

// New binds the artifacts to the pipeline steps. A nil metrics disables reporting.
// Any error means the artifacts cannot serve this pipeline.
func New(a *ml.Artifacts, metrics MetricsInterface) (*Pipeline, error) {
	if a == nil || a.Model == nil || a.Reducer == nil || a.Scaler == nil {
		return nil, errors.New("artifacts are incomplete")
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	reducer, err := NewReducer(a.Reducer)
	if err != nil {
		return nil, err
	}
	scaler, err := NewScaler(a.Scaler)
	if err != nil {
		return nil, err
	}
	assembler, err := NewAssembler(a.Model.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("model feature names: %w", err)
	}

	// a timestamp; the age is computed at query time
	if !a.Metadata.TrainedAt.IsZero() {
		metrics.ModelTrainedAtSet(float64(a.Metadata.TrainedAt.Unix()))
	}

	return &Pipeline{
		artifacts: a,
		reducer:   reducer,
		scaler:    scaler,
		assembler: assembler,
		service:   NewService(a.Model, metrics),
		metrics:   metrics,
	}, nil
}

// Version returns the version of the loaded bundle.
func (p *Pipeline) Version() string {
	return p.artifacts.Version
}

// Artifacts returns the loaded artifacts.
func (p *Pipeline) Artifacts() *ml.Artifacts {
	return p.artifacts
}

// PredictOne predicts the score of a single student.
func (p *Pipeline) PredictOne(ctx context.Context, r features.StudentRecord) (float64, error) {
	start := time.Now()
	scores, err := p.predictRecords(ctx, []features.StudentRecord{r}, false)
	p.observe(ModeSingle, 1, start, err)
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// PredictRecords predicts one score per record, aligned by index.
func (p *Pipeline) PredictRecords(ctx context.Context, rs []features.StudentRecord) ([]float64, error) {
	start := time.Now()
	scores, err := p.predictRecords(ctx, rs, true)
	p.observe(ModeBatch, len(rs), start, err)
	return scores, err
}

func (p *Pipeline) predictRecords(ctx context.Context, rs []features.StudentRecord, numbered bool) ([]float64, error) {
	if len(rs) == 0 {
		return nil, &features.ValidationError{Kind: features.KindEmptyTable}
	}

	raw := newRawColumns(len(rs))
	for i, r := range rs {
		enc, err := features.Encode(r)
		if err != nil {
			var ve *features.ValidationError
			if numbered && errors.As(err, &ve) {
				ve.Row = i + 1
			}
			return nil, err
		}
		raw[features.ColPreviousScores][i] = r.PreviousScores
		raw[features.ColAttendance][i] = r.Attendance
		raw[features.ColHoursStudied][i] = r.HoursStudied
		raw[features.ColTutoringSessions][i] = r.TutoringSessions
		raw[features.ColParentalInvolvement][i] = r.ParentalInvolvement
		raw[features.ColAccessToResources][i] = r.AccessToResources
		raw[features.ColParentalEducationLevel][i] = float64(enc.EducationLevel)
		for col, v := range enc.Flags {
			raw[col][i] = boolToFloat(v)
		}
	}

	scores, _, err := p.run(ctx, raw, len(rs))
	return scores, err
}

// rawColumns returns the columns the core consumes: pass-through numerics, the
// education ordinal, the boolean flags and the reducer and scaler inputs.
func rawColumns() []string {
	cols := append([]string{}, features.PassThroughColumns...)
	cols = append(cols, features.ColPreviousScores, features.ColParentalEducationLevel)
	cols = append(cols, features.ReducerColumns...)
	return append(cols, features.EncodedColumns()...)
}

func newRawColumns(n int) map[string][]float64 {
	cols := rawColumns()
	raw := make(map[string][]float64, len(cols))
	for _, c := range cols {
		raw[c] = make([]float64, n)
	}
	return raw
}

// run is the columnwise core shared by every entry point.
func (p *Pipeline) run(ctx context.Context, raw map[string][]float64, n int) ([]float64, *derived, error) {
	dim, err := p.reducer.Reduce(raw[features.ColAttendance], raw[features.ColHoursStudied])
	if err != nil {
		return nil, nil, err
	}
	prev, scaledDim, err := p.scaler.Scale(raw[features.ColPreviousScores], dim)
	if err != nil {
		return nil, nil, err
	}

	cols := make(map[string][]float64, len(p.assembler.Columns()))
	for _, c := range features.PassThroughColumns {
		cols[c] = raw[c]
	}
	cols[features.ColParentalEducationLevel] = raw[features.ColParentalEducationLevel]
	for _, c := range features.EncodedColumns() {
		cols[c] = raw[c]
	}
	cols[features.ColPreviousScores] = prev
	cols[features.ColDimension] = scaledDim

	ft, err := p.assembler.Assemble(cols)
	if err != nil {
		return nil, nil, err
	}
	if ft.Rows() != n {
		return nil, nil, fmt.Errorf("assembled %d rows for %d inputs", ft.Rows(), n)
	}

	scores, err := p.service.Predict(ctx, ft)
	if err != nil {
		return nil, nil, err
	}
	return scores, &derived{dimension: dim, scaledPrevious: prev, scaledDimension: scaledDim}, nil
}

func (p *Pipeline) observe(mode string, n int, start time.Time, err error) {
	p.metrics.LatencyObserve(mode, time.Since(start).Seconds())
	if err == nil {
		p.metrics.PredictionsAdd(mode, n)
		return
	}

	var ve *features.ValidationError
	var pe *features.PipelineError
	switch {
	case errors.As(err, &ve):
		p.metrics.ValidationErrorsInc(string(ve.Kind))
		log.Debug().Err(err).Str("mode", mode).Str("kind", string(ve.Kind)).Msg("Input rejected")
	case errors.As(err, &pe):
		p.metrics.FailuresInc(string(pe.Kind))
		log.Error().
			Err(pe.Err).
			Str("mode", mode).
			Str("stage", pe.Stage).
			Str("version", p.artifacts.Version).
			Int("rows", n).
			Msg("Prediction pipeline failed")
	default:
		p.metrics.FailuresInc("internal")
		log.Error().Err(err).Str("mode", mode).Msg("Prediction pipeline failed")
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
