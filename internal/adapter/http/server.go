package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/agalert-service/internal/domain"
	"github.com/couchcryptid/agalert-service/internal/pipeline"
	"github.com/couchcryptid/agalert-service/internal/render"
)

// AlertService is the alert API the HTTP layer exposes. *pipeline.Service implements it.
type AlertService interface {
	GenerateAlert(ctx context.Context, req pipeline.AlertRequest) (pipeline.Result, error)
	RenderMessages(ctx context.Context, alert domain.Alert, channels []string) (map[render.Channel]render.ChannelMessage, error)
	ListDistricts() []string
	DistrictCrops(name string) (domain.DistrictCrops, error)
	CropCalendar(name string, planting, on time.Time) (domain.CropCalendar, error)
	HelpTopics() map[string]string
}

// Option customizes a Server.
type Option func(*Server)

// WithClock sets the clock used for date defaults such as the crop calendar's
// reference day.
func WithClock(c clockwork.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithAllowedOrigins sets the CORS origins allowed to call the API.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// Server exposes the alert API with health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        AlertService
	clock      clockwork.Clock
	origins    []string
	logger     *slog.Logger
}

// NewServer creates an HTTP server for svc. ready backs /readyz.
func NewServer(addr string, svc AlertService, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		clock:   clockwork.NewRealClock(),
		origins: []string{"*"},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/districts", s.handleListDistricts)
		r.Get("/districts/{district}/crops", s.handleDistrictCrops)
		r.Get("/crops/{crop}/calendar", s.handleCropCalendar)
		r.Post("/alerts", s.handleGenerateAlert)
		r.Post("/messages", s.handleRenderMessages)
		r.Get("/help", s.handleHelp)
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
