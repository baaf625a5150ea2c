package ml

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegressor predicts X·coef + intercept.
type LinearRegressor struct {
	Features  []string  `json:"feature_names"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (l *LinearRegressor) validate() error {
	if len(l.Coef) == 0 {
		return errors.New("linear model has no coefficients")
	}
	if len(l.Features) != len(l.Coef) {
		return fmt.Errorf("%d feature names for %d coefficients", len(l.Features), len(l.Coef))
	}
	return nil
}

// FeatureNames implements Regressor.
func (l *LinearRegressor) FeatureNames() []string {
	return l.Features
}

// Predict implements Regressor.
func (l *LinearRegressor) Predict(_ context.Context, X mat.Matrix) ([]float64, error) {
	r, c := X.Dims()
	if c != len(l.Coef) {
		return nil, fmt.Errorf("expected %d features, got %d", len(l.Coef), c)
	}
	if r == 0 {
		return []float64{}, nil
	}

	var y mat.VecDense
	y.MulVec(X, mat.NewVecDense(len(l.Coef), l.Coef))

	out := make([]float64, r)
	for i := range out {
		out[i] = y.AtVec(i) + l.Intercept
	}
	return out, nil
}
