// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/internal/model"
)

// AnalysisService is the surface the handlers call. Satisfied by
// analysis.Service.
type AnalysisService interface {
	CreateAnalysis(ctx context.Context, ownerID, rawURL string) (*model.AnalysisOutcome, error)
	GetAnalysis(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, ownerID string, limit, offset int) ([]model.AnalysisRecord, error)
	GenerateStage(ctx context.Context, ownerID, id string, stage int, regenerate bool) (*model.StageOutcome, error)
	GenerateImprovement(ctx context.Context, ownerID, id string) (*model.ImprovementOutcome, error)
	DeleteAnalysis(ctx context.Context, ownerID, id string) error
}

// Config holds the HTTP server configuration.
type Config struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`

	// RatePerSecond and RateBurst bound requests per client IP.
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// DefaultConfig returns the default server configuration. Generation calls
// can sit behind slow providers, so the request timeout is generous.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    5 * time.Minute,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  4 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"*"},
		RatePerSecond:   5,
		RateBurst:       10,
	}
}

// Server wraps the chi router and its http.Server.
type Server struct {
	cfg    Config
	svc    AnalysisService
	router chi.Router
}

// New builds a Server around svc.
func New(cfg Config, svc AnalysisService) *Server {
	s := &Server{cfg: cfg, svc: svc}
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(newRateLimiter(s.cfg.RatePerSecond, s.cfg.RateBurst).middleware)
		r.Use(ownerIdentity)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.handleCreateAnalysis)
			r.Get("/", s.handleListAnalyses)

			r.Route("/{analysisID}", func(r chi.Router) {
				r.Get("/", s.handleGetAnalysis)
				r.Delete("/", s.handleDeleteAnalysis)
				r.Post("/stages/{stage}", s.handleGenerateStage)
				r.Post("/improvements", s.handleGenerateImprovement)
			})
		})
	})

	return r
}

// ListenAndServe starts the server and shuts it down gracefully when ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	zap.L().Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
