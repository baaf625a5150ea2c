package ml

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const leaf = -1

// Tree is a fitted regression tree in flat array form: node i splits on
// Feature[i] at Threshold[i] (x <= threshold goes left) unless both children are -1,
// in which case Value[i] is its output.
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Value)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n {
		return fmt.Errorf("tree arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf && r == leaf {
			continue
		}
		// children always follow their parent, which also rules out cycles
		if l <= i || r <= i || l >= n || r >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if f := t.Feature[i]; f < 0 || f >= nFeatures {
			return fmt.Errorf("node %d splits on unknown feature %d", i, f)
		}
	}
	return nil
}

func (t *Tree) predict(row []float64) float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// ForestRegressor averages the outputs of its trees. A single tree is a decision tree regressor.
type ForestRegressor struct {
	Features []string `json:"feature_names"`
	Trees    []Tree   `json:"trees"`
}

func (f *ForestRegressor) validate() error {
	if len(f.Features) == 0 {
		return errors.New("forest declares no feature names")
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(len(f.Features)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// FeatureNames implements Regressor.
func (f *ForestRegressor) FeatureNames() []string {
	return f.Features
}

// Predict implements Regressor.
func (f *ForestRegressor) Predict(_ context.Context, X mat.Matrix) ([]float64, error) {
	r, c := X.Dims()
	if c != len(f.Features) {
		return nil, fmt.Errorf("expected %d features, got %d", len(f.Features), c)
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		var sum float64
		for j := range f.Trees {
			sum += f.Trees[j].predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}
