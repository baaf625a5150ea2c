// Package server exposes the prediction pipeline over HTTP and websocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"exam-score/internal/features"
	"exam-score/internal/metrics"
	"exam-score/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the transport settings of the service.
type Config struct {
	Port            int
	MaxUploadBytes  int64
	DefaultLanguage string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration // per API request; zero disables
	Batch           pipeline.BatchOptions
}

// MetricsInterface is the transport side of the metrics wrapper.
type MetricsInterface interface {
	Request(route string, code int) metrics.MetricsCounter
	WSConnections() metrics.MetricsGauge
}

type nopMetric struct{}

func (nopMetric) Inc()        {}
func (nopMetric) Set(float64) {}
func (nopMetric) Add(float64) {}

type nopMetrics struct{}

func (nopMetrics) Request(string, int) metrics.MetricsCounter { return nopMetric{} }
func (nopMetrics) WSConnections() metrics.MetricsGauge        { return nopMetric{} }

// Server serves single and batch predictions.
type Server struct {
	pipeline *pipeline.Pipeline
	batch    *pipeline.BatchRunner
	cfg      Config
	labels   *features.Labels
	metrics  MetricsInterface
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	router   chi.Router
	server   *http.Server
	started  time.Time
}

// New builds the router over p. A nil gatherer serves the default Prometheus registry.
func New(p *pipeline.Pipeline, cfg Config, m MetricsInterface, gatherer prometheus.Gatherer) (*Server, error) {
	labels, ok := features.LookupLanguage(cfg.DefaultLanguage)
	if !ok {
		return nil, fmt.Errorf("unknown language %q", cfg.DefaultLanguage)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if m == nil {
		m = nopMetrics{}
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		pipeline: p,
		batch:    pipeline.NewBatchRunner(p, cfg.Batch),
		cfg:      cfg,
		labels:   labels,
		metrics:  m,
		gatherer: gatherer,
		started:  time.Now(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(assignRequestID, middleware.RequestID, middleware.RealIP, s.instrument, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/model/info", s.handleModelInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	// long lived, kept out of the request timeout
	r.Get("/ws/predict", s.handleWS)

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Post("/predict", s.handlePredict)
		r.Post("/predict/batch", s.handleBatch)
		r.Get("/options", s.handleOptions)
		r.Get("/template", s.handleTemplate)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	log.Info().
		Str("addr", s.server.Addr).
		Str("model_version", s.pipeline.Version()).
		Msg("Starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// assignRequestID gives every request a uuid unless the client sent its own id.
func assignRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(middleware.RequestIDHeader, id)
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
			if websocket.IsWebSocketUpgrade(r) {
				status = http.StatusSwitchingProtocols
			}
		}
		s.metrics.Request(route, status).Inc()

		log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// language returns the labels of name, or the default labels when name is empty.
func (s *Server) language(name string) (*features.Labels, error) {
	if name == "" {
		return s.labels, nil
	}
	l, ok := features.LookupLanguage(name)
	if !ok {
		return nil, &features.ValidationError{Kind: features.KindInvalidValue, Field: "lang", Value: name}
	}
	return l, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, labels *features.Labels) {
	status, body := errorResponse(err, labels)
	body.RequestID = middleware.GetReqID(r.Context())

	evt := log.Debug()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).
		Str("route", r.URL.Path).
		Int("status", status).
		Str("kind", body.Kind).
		Str("request_id", body.RequestID).
		Msg("Request failed")

	writeJSON(w, status, body)
}
