package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"
)

// RemoteRegressor delegates inference to an HTTP endpoint hosting the trained model.
type RemoteRegressor struct {
	url      string
	features []string
	rest     *resty.Client
}

type remoteRequest struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

type remoteResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
}

// NewRemoteRegressor returns a client for the inference endpoint at url.
func NewRemoteRegressor(url string, features []string, timeout time.Duration) (*RemoteRegressor, error) {
	if url == "" {
		return nil, errors.New("remote model url is empty")
	}
	if len(features) == 0 {
		return nil, errors.New("remote model declares no feature names")
	}

	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Accept", "application/json")

	return &RemoteRegressor{url: url, features: features, rest: r}, nil
}

// FeatureNames implements Regressor.
func (m *RemoteRegressor) FeatureNames() []string {
	return m.features
}

// Predict implements Regressor.
func (m *RemoteRegressor) Predict(ctx context.Context, X mat.Matrix) ([]float64, error) {
	r, c := X.Dims()
	if c != len(m.features) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.features), c)
	}

	req := remoteRequest{Columns: m.features, Rows: make([][]float64, r)}
	for i := 0; i < r; i++ {
		req.Rows[i] = mat.Row(nil, i, X)
	}

	start := time.Now()
	result := &remoteResponse{}
	resp, err := m.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(result).
		Post(m.url)
	if err != nil {
		log.Error().
			Err(err).
			Str("url", m.url).
			Int("rows", r).
			Dur("elapsed", time.Since(start)).
			Msg("Remote inference request failed")
		return nil, fmt.Errorf("remote inference request failed: %w", err)
	}

	if resp.IsError() {
		log.Error().
			Int("status", resp.StatusCode()).
			Str("url", m.url).
			Str("body", resp.String()).
			Msg("Remote inference returned error status")
		if result.Error != "" {
			return nil, fmt.Errorf("remote inference error (status %d): %s", resp.StatusCode(), result.Error)
		}
		return nil, fmt.Errorf("remote inference error: status %d", resp.StatusCode())
	}
	if result.Error != "" {
		return nil, fmt.Errorf("remote inference error: %s", result.Error)
	}
	if len(result.Predictions) != r {
		return nil, fmt.Errorf("remote inference returned %d predictions for %d rows", len(result.Predictions), r)
	}

	log.Debug().
		Int("rows", r).
		Dur("elapsed", time.Since(start)).
		Msg("Remote inference successful")

	return result.Predictions, nil
}
