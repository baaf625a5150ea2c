package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"exam-score/internal/common"
	"exam-score/internal/features"
	"exam-score/internal/pipeline"
	"exam-score/internal/table"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxJSONBytes = 64 << 10

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status       string    `json:"status"`
	ModelVersion string    `json:"model_version,omitempty"`
	Uptime       float64   `json:"uptime_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// OptionsResponse carries everything a client needs to render the input form.
type OptionsResponse struct {
	*features.Labels
	Languages []string `json:"languages"`
}

// predict runs one request through the pipeline. The returned labels are the ones the
// caller should use for error messages.
func (s *Server) predict(ctx context.Context, req *PredictRequest, requestID string) (*PredictResponse, *features.Labels, error) {
	start := time.Now()

	labels, err := s.language(req.Lang)
	if err != nil {
		return nil, s.labels, err
	}
	rec, err := req.record(labels)
	if err != nil {
		return nil, labels, err
	}
	score, err := s.pipeline.PredictOne(ctx, rec)
	if err != nil {
		return nil, labels, err
	}

	return &PredictResponse{
		Score:        score,
		Display:      fmt.Sprintf("%.2f", score),
		Message:      labels.Message(features.MsgSuccess),
		ModelVersion: s.pipeline.Version(),
		RequestID:    requestID,
		Latency:      float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:    time.Now(),
	}, labels, nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes)).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			err = badRequest(fmt.Errorf("invalid request: %w", err))
		}
		s.writeError(w, r, err, s.labels)
		return
	}

	resp, labels, err := s.predict(r.Context(), &req, middleware.GetReqID(r.Context()))
	if err != nil {
		s.writeError(w, r, err, labels)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	labels, err := s.language(r.URL.Query().Get("lang"))
	if err != nil {
		s.writeError(w, r, err, s.labels)
		return
	}

	if r.ContentLength > s.cfg.MaxUploadBytes {
		s.writeError(w, r, &http.MaxBytesError{Limit: s.cfg.MaxUploadBytes}, labels)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if !errors.As(err, &mbe) {
			err = badRequest(fmt.Errorf("file upload: %w", err))
		}
		s.writeError(w, r, err, labels)
		return
	}
	defer file.Close()

	t, err := table.Read(header.Filename, file)
	if err != nil {
		s.writeError(w, r, err, labels)
		return
	}

	res, err := s.batch.Run(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err, labels)
		return
	}

	log.Info().
		Str("file", header.Filename).
		Int("rows", len(res.Predictions)).
		Float64("mean", res.Summary.Mean).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("Batch scored")

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, BatchResponse{
			Rows:             len(res.Predictions),
			PredictionColumn: res.Table.Header[len(res.Table.Header)-1],
			Predictions:      res.Predictions,
			Summary:          res.Summary,
			Message:          labels.Message(features.MsgBatchSuccess),
			ModelVersion:     s.pipeline.Version(),
			RequestID:        middleware.GetReqID(r.Context()),
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", common.BatchResultFilename))
	if err := table.WriteCSV(w, res.Table); err != nil {
		log.Error().Err(err).Msg("Failed to write batch result")
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	labels, err := s.language(r.URL.Query().Get("lang"))
	if err != nil {
		s.writeError(w, r, err, s.labels)
		return
	}
	writeJSON(w, http.StatusOK, OptionsResponse{Labels: labels, Languages: features.Languages()})
}

func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", common.TemplateFilename))
	if err := pipeline.WriteTemplate(w, pipeline.ExampleRecord()); err != nil {
		log.Error().Err(err).Msg("Failed to write template")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "ok",
		Uptime:    time.Since(s.started).Seconds(),
		Timestamp: time.Now(),
	}

	status := http.StatusOK
	if s.pipeline == nil {
		health.Status = "unavailable"
		status = http.StatusServiceUnavailable
	} else {
		health.ModelVersion = s.pipeline.Version()
	}
	writeJSON(w, status, health)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "model not loaded", Kind: KindInternal})
		return
	}
	a := s.pipeline.Artifacts()
	info := map[string]interface{}{
		"version":       a.Version,
		"trained_at":    a.Metadata.TrainedAt,
		"algorithm":     a.Metadata.Algorithm,
		"training_rows": a.Metadata.TrainingRows,
		"description":   a.Metadata.Description,
		"loaded_at":     a.LoadedAt,
		"features":      a.Model.FeatureNames(),
		"batch_columns": pipeline.RequiredColumns(),
	}
	writeJSON(w, http.StatusOK, info)
}
