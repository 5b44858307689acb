// Package api serves the review dashboard over HTTP. Each browser tab opens a
// session and drives its own pipeline run through it.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/roadsafety-cli/internal/pipeline"
	"github.com/sells-group/roadsafety-cli/internal/resilience"
)

const defaultMaxUpload = 25 << 20

// Server holds the dashboard's dependencies.
type Server struct {
	sessions  *pipeline.Sessions
	breakers  *resilience.Breakers
	origins   []string
	maxUpload int64
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithMaxUploadBytes caps the size of an uploaded PDF.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithBreakers exposes backend breaker states on /health.
func WithBreakers(b *resilience.Breakers) Option {
	return func(s *Server) {
		s.breakers = b
	}
}

// NewServer creates a dashboard server over sessions.
func NewServer(sessions *pipeline.Sessions, opts ...Option) *Server {
	s := &Server{sessions: sessions, maxUpload: defaultMaxUpload}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/chainage", s.handleChainage)
		r.Post("/sessions", s.handleCreateSession)

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Use(s.withSession)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/", s.handleState)
			r.Post("/upload", s.handleUpload)
			r.Get("/review", s.handleReview)
			r.Patch("/interventions/{interventionID}", s.handleUpdate)
			r.Post("/submit", s.handleSubmit)
			r.Get("/result", s.handleResult)
			r.Get("/summary", s.handleSummary)
			r.Get("/analytics", s.handleAnalytics)
			r.Post("/chat", s.handleChat)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
