package pipeline

import (
	"errors"
	"fmt"

	"exam-score/internal/features"
	"exam-score/internal/transform"

	"gonum.org/v1/gonum/mat"
)

// bind checks that a transformer was fitted on want, in that order. Artifacts that
// do not declare their input names are bound by position.
func bind(stage string, t transform.Transformer, want []string) error {
	got := t.Columns()
	if got == nil {
		return nil
	}
	if !equalColumns(got, want) {
		return fmt.Errorf("%s was fitted on %v, expected %v", stage, got, want)
	}
	return nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stack builds an n×len(cols) matrix from equal-length columns.
func stack(cols ...[]float64) *mat.Dense {
	n := len(cols[0])
	X := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		X.SetCol(j, c)
	}
	return X
}

func transformFailure(stage string, err error) error {
	return &features.PipelineError{Kind: features.KindTransformFailure, Stage: stage, Err: err}
}

// Reducer derives the "dimension" feature from Attendance and Hours_Studied.
type Reducer struct {
	t transform.Transformer
}

// NewReducer binds t as the dimension reducer.
func NewReducer(t transform.Transformer) (*Reducer, error) {
	if err := bind(StageReducer, t, features.ReducerColumns); err != nil {
		return nil, err
	}
	return &Reducer{t: t}, nil
}

// Reduce transforms the [Attendance, Hours_Studied] matrix once and keeps the
// first output component. Values outside the documented ranges pass through.
func (r *Reducer) Reduce(attendance, hours []float64) ([]float64, error) {
	if len(attendance) == 0 || len(attendance) != len(hours) {
		return nil, transformFailure(StageReducer,
			fmt.Errorf("input columns have %d and %d rows", len(attendance), len(hours)))
	}

	out, err := r.t.Transform(stack(attendance, hours))
	if err != nil {
		return nil, transformFailure(StageReducer, err)
	}
	n, c := out.Dims()
	if n != len(attendance) || c < 1 {
		return nil, transformFailure(StageReducer,
			fmt.Errorf("output is %d×%d for %d rows", n, c, len(attendance)))
	}
	return mat.Col(nil, 0, out), nil
}

// Scaler standardizes Previous_Scores and dimension together.
type Scaler struct {
	t transform.Transformer
}

// NewScaler binds t as the feature scaler.
func NewScaler(t transform.Transformer) (*Scaler, error) {
	if err := bind(StageScaler, t, features.ScalerColumns); err != nil {
		return nil, err
	}
	return &Scaler{t: t}, nil
}

// Scale transforms the [Previous_Scores, dimension] matrix and returns both scaled
// columns in the same order.
func (s *Scaler) Scale(previous, dimension []float64) ([]float64, []float64, error) {
	if len(previous) == 0 || len(previous) != len(dimension) {
		return nil, nil, transformFailure(StageScaler,
			fmt.Errorf("input columns have %d and %d rows", len(previous), len(dimension)))
	}

	out, err := s.t.Transform(stack(previous, dimension))
	if err != nil {
		return nil, nil, transformFailure(StageScaler, err)
	}
	n, c := out.Dims()
	if n != len(previous) || c != 2 {
		return nil, nil, transformFailure(StageScaler,
			fmt.Errorf("output is %d×%d, expected %d×2", n, c, len(previous)))
	}
	return mat.Col(nil, 0, out), mat.Col(nil, 1, out), nil
}

var errNoRows = errors.New("feature table has no rows")
