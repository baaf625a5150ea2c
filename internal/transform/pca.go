package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// PCA projects centered input onto fitted principal components.
type PCA struct {
	FeatureNames      []string    `json:"feature_names,omitempty"`
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"` // k×d, one unit vector per row
	ExplainedVariance []float64   `json:"explained_variance,omitempty"`
	Whiten            bool        `json:"whiten,omitempty"`

	components *mat.Dense
}

func (p *PCA) init() error {
	d := len(p.Mean)
	if d == 0 {
		return errors.New("mean is empty")
	}
	if len(p.Components) == 0 {
		return errors.New("no components")
	}
	if p.FeatureNames != nil && len(p.FeatureNames) != d {
		return fmt.Errorf("%d feature names for %d inputs", len(p.FeatureNames), d)
	}

	k := len(p.Components)
	data := make([]float64, 0, k*d)
	for i, c := range p.Components {
		if len(c) != d {
			return fmt.Errorf("component %d has %d entries, want %d", i, len(c), d)
		}
		data = append(data, c...)
	}
	p.components = mat.NewDense(k, d, data)

	if p.Whiten {
		if len(p.ExplainedVariance) != k {
			return fmt.Errorf("whitening needs %d explained variances, got %d", k, len(p.ExplainedVariance))
		}
		for i, v := range p.ExplainedVariance {
			if v <= 0 {
				return fmt.Errorf("explained variance %d is not positive", i)
			}
		}
	}
	return nil
}

// Columns implements Transformer.
func (p *PCA) Columns() []string {
	return p.FeatureNames
}

// Transform returns the n×k projection (X - mean)·Cᵀ.
func (p *PCA) Transform(X mat.Matrix) (*mat.Dense, error) {
	if p.components == nil {
		return nil, errors.New("pca is not initialized")
	}
	r, err := checkInput(X, len(p.Mean))
	if err != nil {
		return nil, err
	}

	centered := mat.NewDense(r, len(p.Mean), nil)
	centered.Apply(func(_, j int, v float64) float64 {
		return v - p.Mean[j]
	}, X)

	var out mat.Dense
	out.Mul(centered, p.components.T())

	if p.Whiten {
		out.Apply(func(_, j int, v float64) float64 {
			return v / math.Sqrt(p.ExplainedVariance[j])
		}, &out)
	}
	return &out, nil
}
