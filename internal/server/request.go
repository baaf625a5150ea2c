package server

import (
	"strings"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/pipeline"
)

// PredictRequest is a single-record request. Categorical fields hold display labels of
// Lang or canonical values.
type PredictRequest struct {
	Lang string `json:"lang,omitempty"`

	PreviousScores      *float64 `json:"previous_scores"`
	Attendance          *float64 `json:"attendance"`
	HoursStudied        *float64 `json:"hours_studied"`
	TutoringSessions    *float64 `json:"tutoring_sessions"`
	ParentalInvolvement *float64 `json:"parental_involvement"`
	AccessToResources   *float64 `json:"access_to_resources"`

	ParentalEducationLevel string `json:"parental_education_level"`
	Extracurricular        string `json:"extracurricular"`
	InternetAccess         string `json:"internet_access"`
	SchoolType             string `json:"school_type"`
	PeerInfluence          string `json:"peer_influence"`
	LearningDisabilities   string `json:"learning_disabilities"`
	Gender                 string `json:"gender"`
}

// PredictResponse is the answer to a PredictRequest.
type PredictResponse struct {
	Score        float64   `json:"score"`
	Display      string    `json:"display"`
	Message      string    `json:"message"`
	ModelVersion string    `json:"model_version"`
	RequestID    string    `json:"request_id,omitempty"`
	Latency      float64   `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// BatchResponse is the JSON form of a batch result.
type BatchResponse struct {
	Rows             int              `json:"rows"`
	PredictionColumn string           `json:"prediction_column"`
	Predictions      []float64        `json:"predictions"`
	Summary          pipeline.Summary `json:"summary"`
	Message          string           `json:"message"`
	ModelVersion     string           `json:"model_version"`
	RequestID        string           `json:"request_id,omitempty"`
}

// record validates the numeric fields and resolves the labels into canonical values.
func (req *PredictRequest) record(labels *features.Labels) (features.StudentRecord, error) {
	var r features.StudentRecord
	numeric := []struct {
		column string
		in     *float64
		out    *float64
	}{
		{features.ColPreviousScores, req.PreviousScores, &r.PreviousScores},
		{features.ColAttendance, req.Attendance, &r.Attendance},
		{features.ColHoursStudied, req.HoursStudied, &r.HoursStudied},
		{features.ColTutoringSessions, req.TutoringSessions, &r.TutoringSessions},
		{features.ColParentalInvolvement, req.ParentalInvolvement, &r.ParentalInvolvement},
		{features.ColAccessToResources, req.AccessToResources, &r.AccessToResources},
	}
	for _, n := range numeric {
		if n.in == nil {
			return features.StudentRecord{}, &features.ValidationError{Kind: features.KindInvalidValue, Field: n.column}
		}
		*n.out = *n.in
	}

	r.ParentalEducationLevel = strings.TrimSpace(req.ParentalEducationLevel)
	r.Extracurricular = strings.TrimSpace(req.Extracurricular)
	r.InternetAccess = strings.TrimSpace(req.InternetAccess)
	r.SchoolType = strings.TrimSpace(req.SchoolType)
	r.PeerInfluence = strings.TrimSpace(req.PeerInfluence)
	r.LearningDisabilities = strings.TrimSpace(req.LearningDisabilities)
	r.Gender = strings.TrimSpace(req.Gender)

	return labels.Canonicalize(r)
}
