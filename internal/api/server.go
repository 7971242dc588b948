package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/billowhq/billow/internal/api/middleware"
	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/cache"
	"github.com/billowhq/billow/internal/config"
	"github.com/billowhq/billow/internal/log"
	"github.com/billowhq/billow/internal/storage"
)

// insightsTTL bounds staleness of cached insight responses.
const insightsTTL = 5 * time.Minute

// Server holds the API's collaborators and builds its router.
type Server struct {
	store  *storage.Store
	tokens *auth.Manager
	cache  cache.Cache
	cfg    config.Config
	logger zerolog.Logger

	// focus is the websocket gateway handler mounted at /ws/focus.
	// Nil disables the endpoint (some tests run without it).
	focus http.Handler
}

// New creates an API server.
func New(store *storage.Store, tokens *auth.Manager, c cache.Cache, cfg config.Config, focus http.Handler) *Server {
	if c == nil {
		c = cache.NewMemoryCache(time.Minute)
	}
	return &Server{
		store:  store,
		tokens: tokens,
		cache:  c,
		cfg:    cfg,
		logger: log.WithComponent("api"),
		focus:  focus,
	}
}

// Routes builds the full router with the canonical middleware stack.
func (s *Server) Routes() *chi.Mux {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		EnableRateLimit:       true,
		RateLimitRPS:          s.cfg.WriteRateLimit,
		RateLimitWindow:       time.Duration(s.cfg.RateLimitWindowMS) * time.Millisecond,
	})

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.AuthRateLimit(s.cfg.AuthRateLimit, time.Duration(s.cfg.RateLimitWindowMS)*time.Millisecond))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/demo", s.handleDemo)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.tokens))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Patch("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
		})

		r.Route("/reflections", func(r chi.Router) {
			r.Get("/", s.handleListReflections)
			r.Post("/", s.handleCreateReflection)
		})

		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Post("/", s.handleCreateSnapshot)
			r.Get("/compare", s.handleCompareSnapshots)
		})

		r.Route("/digests", func(r chi.Router) {
			r.Get("/", s.handleListDigests)
			r.Post("/", s.handleGenerateDigest)
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/weekly", s.handleWeeklyInsights)
			r.Get("/dashboard", s.handleDashboard)
		})
	})

	if s.focus != nil {
		r.Handle("/ws/focus", s.focus)
	}

	return r
}

// invalidateInsights drops cached insight responses after a write that
// changes their inputs.
func (s *Server) invalidateInsights(userID string) {
	s.cache.DeletePrefix("insights:" + userID + ":")
}
