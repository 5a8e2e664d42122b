// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/riskdash/internal/config"
	"github.com/aristath/riskdash/internal/di"
	alertshandlers "github.com/aristath/riskdash/internal/modules/alerts/handlers"
	portfoliohandlers "github.com/aristath/riskdash/internal/modules/portfolio/handlers"
	riskhandlers "github.com/aristath/riskdash/internal/modules/risk/handlers"
	"github.com/aristath/riskdash/internal/utils"
)

// requestTimeout bounds every non-streaming request
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	var jobs JobRunner
	if cfg.Container.Scheduler != nil {
		jobs = cfg.Container.Scheduler
	}
	s.systemHandlers = NewSystemHandlers(cfg.Container.Databases(), jobs, cfg.Log)

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: streams stay open; other routes use requestTimeout
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Prometheus request metrics
	if s.container.Metrics != nil {
		s.router.Use(s.container.Metrics.Middleware)
	}

	// CORS
	origins := s.cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", utils.HeaderUserID},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.container.Metrics != nil {
		s.router.Handle("/metrics", s.container.Metrics.Handler())
	}

	riskHandler := riskhandlers.NewHandler(s.container.RiskService, s.container.EventBus, s.log)
	portfolioHandler := portfoliohandlers.NewHandler(s.container.HoldingsRepo, s.container.EventBus, s.log)
	alertsHandler := alertshandlers.NewHandler(s.container.AlertsRepo, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived streams: no timeout, no compression
		r.Group(func(r chi.Router) {
			riskHandler.RegisterStreamRoutes(r)
			if s.container.EventBus != nil {
				r.Get("/events/stream", NewEventsStreamHandler(s.container.EventBus, s.log).ServeHTTP)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			if !s.cfg.DevMode {
				r.Use(middleware.Compress(5))
			}

			riskHandler.RegisterRoutes(r)
			portfolioHandler.RegisterRoutes(r)
			alertsHandler.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{name}/run", s.systemHandlers.HandleTriggerJob)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth reports healthy only when every database answers a ping
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, db := range s.container.Databases() {
		if err := db.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Str("database", name).Msg("Health check failed")
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":    state,
		"service":   "riskdash",
		"databases": checks,
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
