package transform

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler standardizes each column as (x - mean) / scale.
// A nil Mean means the scaler was fitted without centering.
type StandardScaler struct {
	FeatureNames []string  `json:"feature_names,omitempty"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale"`
}

func (s *StandardScaler) init() error {
	if len(s.Scale) == 0 {
		return errors.New("scale is empty")
	}
	if s.Mean != nil && len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("mean has %d entries, scale has %d", len(s.Mean), len(s.Scale))
	}
	if s.FeatureNames != nil && len(s.FeatureNames) != len(s.Scale) {
		return fmt.Errorf("%d feature names for %d inputs", len(s.FeatureNames), len(s.Scale))
	}
	return nil
}

// Columns implements Transformer.
func (s *StandardScaler) Columns() []string {
	return s.FeatureNames
}

// Transform implements Transformer.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, err := checkInput(X, len(s.Scale))
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(r, len(s.Scale), nil)
	out.Apply(func(_, j int, v float64) float64 {
		if s.Mean != nil {
			v -= s.Mean[j]
		}
		// zero-variance columns are stored with scale 1 after fitting; guard anyway
		if s.Scale[j] == 0 {
			return v
		}
		return v / s.Scale[j]
	}, X)
	return out, nil
}

// MinMaxScaler maps each column as x*scale + min, the fitted form of a [lo, hi] range scaler.
type MinMaxScaler struct {
	FeatureNames []string  `json:"feature_names,omitempty"`
	Min          []float64 `json:"min"`
	Scale        []float64 `json:"scale"`
}

func (s *MinMaxScaler) init() error {
	if len(s.Scale) == 0 {
		return errors.New("scale is empty")
	}
	if len(s.Min) != len(s.Scale) {
		return fmt.Errorf("min has %d entries, scale has %d", len(s.Min), len(s.Scale))
	}
	if s.FeatureNames != nil && len(s.FeatureNames) != len(s.Scale) {
		return fmt.Errorf("%d feature names for %d inputs", len(s.FeatureNames), len(s.Scale))
	}
	return nil
}

// Columns implements Transformer.
func (s *MinMaxScaler) Columns() []string {
	return s.FeatureNames
}

// Transform implements Transformer.
func (s *MinMaxScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, err := checkInput(X, len(s.Scale))
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(r, len(s.Scale), nil)
	out.Apply(func(_, j int, v float64) float64 {
		return v*s.Scale[j] + s.Min[j]
	}, X)
	return out, nil
}
