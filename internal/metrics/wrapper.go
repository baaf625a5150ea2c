package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Interfaces for metrics to avoid circular imports
type MetricsCounter interface {
	Inc()
}

type MetricsGauge interface {
	Set(float64)
	Add(float64)
}

// MetricsWrapper adapts Metrics to the narrow interfaces of the pipeline and server.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsAdd(mode string, n int) {
	w.m.Predictions.WithLabelValues(mode).Add(float64(n))
}

func (w *MetricsWrapper) FailuresInc(kind string) {
	w.m.Failures.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) ValidationErrorsInc(kind string) {
	w.m.ValidationErrors.WithLabelValues(kind).Inc()
}

func (w *MetricsWrapper) LatencyObserve(mode string, seconds float64) {
	w.m.Latency.WithLabelValues(mode).Observe(seconds)
}

func (w *MetricsWrapper) BatchRowsObserve(n int) {
	w.m.BatchRows.Observe(float64(n))
}

func (w *MetricsWrapper) ScoreObserve(score float64) {
	w.m.PredictedScores.Observe(score)
}

func (w *MetricsWrapper) ModelTrainedAtSet(unixSeconds float64) {
	w.m.ModelTrainedAt.Set(unixSeconds)
}

// Request returns the counter of a route and status code.
func (w *MetricsWrapper) Request(route string, code int) MetricsCounter {
	return &CounterWrapper{w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code))}
}

func (w *MetricsWrapper) WSConnections() MetricsGauge {
	return &GaugeWrapper{w.m.WSConnections}
}

type CounterWrapper struct {
	c prometheus.Counter
}

func (cw *CounterWrapper) Inc() {
	cw.c.Inc()
}

type GaugeWrapper struct {
	g prometheus.Gauge
}

func (gw *GaugeWrapper) Set(v float64) {
	gw.g.Set(v)
}

func (gw *GaugeWrapper) Add(v float64) {
	gw.g.Add(v)
}
