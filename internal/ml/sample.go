package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/transform"
)

// sampleCoef are illustrative linear weights over features.ModelColumns.
var sampleCoef = map[string]float64{
	features.ColParentalInvolvement:    1.0,
	features.ColAccessToResources:      1.0,
	features.ColPreviousScores:         0.7,
	features.ColTutoringSessions:       0.5,
	features.ColParentalEducationLevel: 0.3,
	"Extracurricular_Activities_No":    -0.25,
	"Extracurricular_Activities_Yes":   0.25,
	"Internet_Access_No":               -0.5,
	"Internet_Access_Yes":              0.5,
	"Peer_Influence_Negative":          -0.5,
	"Peer_Influence_Positive":          0.5,
	"Learning_Disabilities_No":         0.4,
	"Learning_Disabilities_Yes":        -0.4,
	features.ColDimension:              3.5,
}

// SampleBundle returns a small, self-consistent bundle for trying the service
// without a trained model. Its scores are illustrative only.
func SampleBundle() Bundle {
	names := features.ModelColumns()
	coef := make([]float64, len(names))
	for i, n := range names {
		coef[i] = sampleCoef[n]
	}

	norm := math.Sqrt(10)
	reducer := struct {
		Kind string `json:"kind"`
		transform.PCA
	}{
		Kind: transform.KindPCA,
		PCA: transform.PCA{
			FeatureNames: features.ReducerColumns,
			Mean:         []float64{80, 20},
			Components:   [][]float64{{3 / norm, 1 / norm}},
		},
	}
	scaler := struct {
		Kind string `json:"kind"`
		transform.StandardScaler
	}{
		Kind: transform.KindStandardScaler,
		StandardScaler: transform.StandardScaler{
			FeatureNames: features.ScalerColumns,
			Mean:         []float64{75, 0},
			Scale:        []float64{14.4, 10.5},
		},
	}
	model := struct {
		Kind string `json:"kind"`
		LinearRegressor
	}{
		Kind:            KindLinear,
		LinearRegressor: LinearRegressor{Features: names, Coef: coef, Intercept: 62},
	}

	mustJSON := func(v interface{}) json.RawMessage {
		data, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		return data
	}

	return Bundle{
		Version:   "sample",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Metadata: ModelMetadata{
			Version:     "sample",
			TrainedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Algorithm:   KindLinear,
			Description: "illustrative bundle, not a trained model",
		},
		Model:            mustJSON(model),
		DimensionReducer: mustJSON(reducer),
		Scaler:           mustJSON(scaler),
	}
}

// WriteBundleDir writes b in the directory layout ReadBundleDir expects.
func WriteBundleDir(dir string, b Bundle) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	meta := b.Metadata
	if meta.Version == "" {
		meta.Version = b.Version
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	files := map[string][]byte{
		ModelFile:    b.Model,
		ReducerFile:  b.DimensionReducer,
		ScalerFile:   b.Scaler,
		MetadataFile: metaJSON,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
