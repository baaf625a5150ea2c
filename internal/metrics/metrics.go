// Package metrics provides Prometheus metrics collection for the exam score service.
// It defines the prediction, validation and transport metrics that are exposed via
// the Prometheus metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions      *prometheus.CounterVec   // Rows predicted, by mode
	Failures         *prometheus.CounterVec   // Pipeline failures, by kind
	ValidationErrors *prometheus.CounterVec   // Rejected inputs, by kind
	Latency          *prometheus.HistogramVec // End-to-end prediction latency, by mode
	BatchRows        prometheus.Histogram     // Rows per successful batch
	PredictedScores  prometheus.Histogram     // Distribution of predicted scores
	ModelTrainedAt   prometheus.Gauge         // Training time of the loaded model, unix seconds

	// Transport metrics
	HTTPRequests  *prometheus.CounterVec // HTTP requests, by route and status code
	WSConnections prometheus.Gauge       // Open websocket connections
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_predictions_total",
			Help: "Total number of rows predicted",
		}, []string{"mode"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_prediction_failures_total",
			Help: "Total number of failures inside the transformers or the model",
		}, []string{"kind"}),
		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_validation_errors_total",
			Help: "Total number of inputs rejected before prediction",
		}, []string{"kind"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exam_prediction_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"mode"}),
		BatchRows: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_batch_rows",
			Help:    "Number of rows per predicted batch",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		}),
		PredictedScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "exam_predicted_scores",
			Help:    "Distribution of predicted exam scores",
			Buckets: prometheus.LinearBuckets(50, 5, 11),
		}),
		ModelTrainedAt: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exam_model_trained_timestamp_seconds",
			Help: "Unix time at which the loaded model was trained",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "code"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exam_ws_connections",
			Help: "Number of open websocket connections",
		}),
	}
}
