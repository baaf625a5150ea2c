// Package ml provides the opaque exam score models and the artifact bundle they
// ship in.
//
// A bundle holds three named artifacts: the regression model, the dimension
// reducer and the scaler. Models are either evaluated natively (tree ensembles
// and linear models exported after training) or delegated to a remote inference
// endpoint. The package also versions bundles through a ModelManager backed by
// any BundleStore.
package ml

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Regressor is a trained model exposing only inference.
type Regressor interface {
	// FeatureNames returns the columns the model was fitted with, in order.
	FeatureNames() []string

	// Predict returns one score per row of X. Columns of X follow FeatureNames.
	Predict(ctx context.Context, X mat.Matrix) ([]float64, error)
}
