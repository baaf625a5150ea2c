// Package transform provides pre-fitted, transform-only numeric transformers.
//
// Transformers are decoded from JSON artifacts exported after training (PCA,
// standard and min-max scaling) and applied to whole matrices at once. Nothing
// in this package fits or mutates a transformer after it has been decoded, so a
// decoded transformer may be shared by concurrent callers.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transformer is a fitted transformer exposing only its inference-time operation.
type Transformer interface {
	// Transform maps an n×k input to an n×m output without changing the transformer.
	Transform(X mat.Matrix) (*mat.Dense, error)

	// Columns returns the input column names the transformer was fitted on,
	// or nil when the artifact does not declare them.
	Columns() []string
}

// Artifact kinds.
const (
	KindPCA            = "pca"
	KindStandardScaler = "standard_scaler"
	KindMinMaxScaler   = "minmax_scaler"
)

var ErrEmptyInput = errors.New("input matrix has no rows")

type header struct {
	Kind string `json:"kind"`
}

// Decode builds a transformer from its JSON artifact, dispatching on "kind".
func Decode(data []byte) (Transformer, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode transformer header: %w", err)
	}

	switch h.Kind {
	case KindPCA:
		var p PCA
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode pca: %w", err)
		}
		if err := p.init(); err != nil {
			return nil, fmt.Errorf("invalid pca: %w", err)
		}
		return &p, nil
	case KindStandardScaler:
		var s StandardScaler
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode standard scaler: %w", err)
		}
		if err := s.init(); err != nil {
			return nil, fmt.Errorf("invalid standard scaler: %w", err)
		}
		return &s, nil
	case KindMinMaxScaler:
		var s MinMaxScaler
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode minmax scaler: %w", err)
		}
		if err := s.init(); err != nil {
			return nil, fmt.Errorf("invalid minmax scaler: %w", err)
		}
		return &s, nil
	case "":
		return nil, fmt.Errorf("transformer artifact has no kind")
	default:
		return nil, fmt.Errorf("unsupported transformer kind %q", h.Kind)
	}
}

func checkInput(X mat.Matrix, width int) (int, error) {
	r, c := X.Dims()
	if r == 0 {
		return 0, ErrEmptyInput
	}
	if c != width {
		return 0, fmt.Errorf("feature count mismatch: expected %d columns, got %d", width, c)
	}
	return r, nil
}
