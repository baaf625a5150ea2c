package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"exam-score/internal/common"
	"exam-score/internal/transform"

	"github.com/rs/zerolog/log"
)

// Artifact file names inside a bundle directory.
const (
	ModelFile    = "model.json"
	ReducerFile  = "dimension_reducer.json"
	ScalerFile   = "scaler.json"
	MetadataFile = "metadata.json"
)

// Model artifact kinds.
const (
	KindRandomForest = "random_forest"
	KindDecisionTree = "decision_tree"
	KindLinear       = "linear"
	KindRemote       = "remote"
)

// ModelMetadata describes a trained bundle. It is informational only.
type ModelMetadata struct {
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	Algorithm    string    `json:"algorithm,omitempty"`
	TrainingRows int       `json:"training_rows,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Bundle is the packaged form of the three artifacts.
type Bundle struct {
	Version          string          `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	Metadata         ModelMetadata   `json:"metadata"`
	Model            json.RawMessage `json:"model"`
	DimensionReducer json.RawMessage `json:"dimension_reducer"`
	Scaler           json.RawMessage `json:"scaler"`
}

// ModelOptions adjusts how model artifacts are turned into regressors.
type ModelOptions struct {
	RemoteURL     string // overrides the url of a remote model artifact
	RemoteTimeout time.Duration
}

// Artifacts are the loaded, immutable inference objects of one bundle.
type Artifacts struct {
	Version  string
	Metadata ModelMetadata
	Model    Regressor
	Reducer  transform.Transformer
	Scaler   transform.Transformer
	LoadedAt time.Time
}

type modelHeader struct {
	Kind     string   `json:"kind"`
	URL      string   `json:"url,omitempty"`
	Features []string `json:"feature_names"`
}

// DecodeModel builds a regressor from its JSON artifact.
func DecodeModel(data []byte, opts ModelOptions) (Regressor, error) {
	var h modelHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode model header: %w", err)
	}

	switch h.Kind {
	case KindRandomForest, KindDecisionTree:
		var f ForestRegressor
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode forest: %w", err)
		}
		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("invalid forest: %w", err)
		}
		return &f, nil
	case KindLinear:
		var l LinearRegressor
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("decode linear model: %w", err)
		}
		if err := l.validate(); err != nil {
			return nil, fmt.Errorf("invalid linear model: %w", err)
		}
		return &l, nil
	case KindRemote:
		url := h.URL
		if opts.RemoteURL != "" {
			url = opts.RemoteURL
		}
		return NewRemoteRegressor(url, h.Features, opts.RemoteTimeout)
	case "":
		return nil, errors.New("model artifact has no kind")
	default:
		return nil, fmt.Errorf("unsupported model kind %q", h.Kind)
	}
}

// ReadBundleDir packages the artifact files found in dir.
func ReadBundleDir(dir string) (Bundle, error) {
	read := func(name string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}

	model, err := read(ModelFile)
	if err != nil {
		return Bundle{}, err
	}
	reducer, err := read(ReducerFile)
	if err != nil {
		return Bundle{}, err
	}
	scaler, err := read(ScalerFile)
	if err != nil {
		return Bundle{}, err
	}

	var meta ModelMetadata
	if data, err := os.ReadFile(filepath.Join(dir, MetadataFile)); err == nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			return Bundle{}, fmt.Errorf("parse %s: %w", MetadataFile, err)
		}
	} else if !os.IsNotExist(err) {
		return Bundle{}, fmt.Errorf("read %s: %w", MetadataFile, err)
	}

	createdAt := time.Now()
	if info, err := os.Stat(filepath.Join(dir, ModelFile)); err == nil {
		createdAt = info.ModTime()
	}

	version := meta.Version
	if version == "" {
		version = createdAt.Format(common.VersionLayout)
	}

	return Bundle{
		Version:          version,
		CreatedAt:        createdAt,
		Metadata:         meta,
		Model:            model,
		DimensionReducer: reducer,
		Scaler:           scaler,
	}, nil
}

// LoadBundle decodes every artifact of b. Any failure means the bundle is unusable.
func LoadBundle(b Bundle, opts ModelOptions) (*Artifacts, error) {
	model, err := DecodeModel(b.Model, opts)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	reducer, err := transform.Decode(b.DimensionReducer)
	if err != nil {
		return nil, fmt.Errorf("load dimension_reducer: %w", err)
	}
	scaler, err := transform.Decode(b.Scaler)
	if err != nil {
		return nil, fmt.Errorf("load scaler: %w", err)
	}

	a := &Artifacts{
		Version:  b.Version,
		Metadata: b.Metadata,
		Model:    model,
		Reducer:  reducer,
		Scaler:   scaler,
		LoadedAt: time.Now(),
	}

	log.Info().
		Str("version", b.Version).
		Strs("features", model.FeatureNames()).
		Msg("Artifacts loaded")

	return a, nil
}

// LoadDir reads and loads the bundle in dir.
func LoadDir(dir string, opts ModelOptions) (*Artifacts, error) {
	b, err := ReadBundleDir(dir)
	if err != nil {
		return nil, err
	}
	return LoadBundle(b, opts)
}
