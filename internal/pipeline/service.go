package pipeline

import (
	"context"
	"fmt"
	"math"

	"exam-score/internal/features"
	"exam-score/internal/ml"
)

// Service invokes the model on assembled feature tables.
type Service struct {
	model   ml.Regressor
	metrics MetricsInterface
}

// NewService wraps model. A nil metrics disables reporting.
func NewService(model ml.Regressor, metrics MetricsInterface) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{model: model, metrics: metrics}
}

// Predict returns one score per row of t. The table's columns must equal the
// model's feature names, in order. Model failures are never retried and never
// replaced by a fallback value.
func (s *Service) Predict(ctx context.Context, t *FeatureTable) ([]float64, error) {
	want := s.model.FeatureNames()
	if !equalColumns(t.Columns, want) {
		missing, extra := diffColumns(t.Columns, want)
		if len(missing) == 0 && len(extra) == 0 {
			return nil, &features.ValidationError{
				Kind:   features.KindSchemaMismatch,
				Detail: "columns are not in model order",
			}
		}
		return nil, schemaMismatch(missing, extra)
	}
	if t.Rows() == 0 {
		return nil, &features.PipelineError{Kind: features.KindPredictionFailure, Stage: StageModel, Err: errNoRows}
	}

	scores, err := s.model.Predict(ctx, t.X)
	if err != nil {
		return nil, &features.PipelineError{Kind: features.KindPredictionFailure, Stage: StageModel, Err: err}
	}
	if len(scores) != t.Rows() {
		return nil, &features.PipelineError{
			Kind:  features.KindPredictionFailure,
			Stage: StageModel,
			Err:   fmt.Errorf("model returned %d predictions for %d rows", len(scores), t.Rows()),
		}
	}
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &features.PipelineError{
				Kind:  features.KindPredictionFailure,
				Stage: StageModel,
				Err:   fmt.Errorf("model returned %v for row %d", v, i+1),
			}
		}
	}

	for _, v := range scores {
		s.metrics.ScoreObserve(v)
	}
	return scores, nil
}
