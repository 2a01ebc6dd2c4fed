package api

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"portrait-studio/internal/config"
	"portrait-studio/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	defaultBodyLimit  = 1 << 20 // 1 MiB
	generateBodyLimit = 6 << 20 // a 4 MiB image as base64 plus the envelope

	adminTimeout  = 30 * time.Second
	healthTimeout = 2 * time.Second

	scopeGeneral  = "general"
	scopeGenerate = "generate"
	scopeAdmin    = "admin"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Codes      usecase.CodeUseCase
	Credits    usecase.CreditUseCase
	Generation usecase.GenerationUseCase
	Admin      usecase.AdminUseCase

	Gate     *AdminGate
	Sessions *SessionManager // nil disables POST /api/admin/session
	Limiter  Limiter         // nil disables rate limiting
	Messages Messages

	RateLimit      config.RateLimitConfig
	AllowedOrigins []string
	TrustedProxies []netip.Prefix // forwarding headers are honoured only from these
	Health         map[string]HealthCheck
	Metrics        bool
	Dev            bool
}

// Server exposes the public credit/generation API and the admin API.
type Server struct {
	codeUC   usecase.CodeUseCase
	creditUC usecase.CreditUseCase
	genUC    usecase.GenerationUseCase
	adminUC  usecase.AdminUseCase

	gate     *AdminGate
	sessions *SessionManager
	limiter  Limiter
	msg      Messages

	rules   config.RateLimitConfig
	origins []string
	proxies []netip.Prefix
	health  map[string]HealthCheck
	metrics bool
	dev     bool
	log     *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	if d.Limiter == nil {
		l.Warn().Msg("rate limiting disabled: no redis configured")
	}
	return &Server{
		codeUC:   d.Codes,
		creditUC: d.Credits,
		genUC:    d.Generation,
		adminUC:  d.Admin,
		gate:     d.Gate,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		msg:      d.Messages,
		rules:    d.RateLimit,
		origins:  d.AllowedOrigins,
		proxies:  d.TrustedProxies,
		health:   d.Health,
		metrics:  d.Metrics,
		dev:      d.Dev,
		log:      &l,
	}
}

// Router builds the chi route tree with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(RealIP(s.proxies))
	r.Use(TraceID(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", adminPasswordHeader},
		ExposedHeaders:   []string{"X-Generation-Id", "X-Credits-Remaining", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(generateBodyLimit))
			r.Use(s.RateLimit(scopeGenerate, s.rules.Generate))
			r.Post("/generate", s.handleGenerate)
		})

		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(defaultBodyLimit))
			r.Use(s.RateLimit(scopeGeneral, s.rules.General))
			r.Get("/credits", s.handleCredits)
			r.Get("/credits/history", s.handleCreditHistory)
			r.Post("/verify-code", s.handleRedeem)
			r.Get("/verify-code", s.handleCodeStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(defaultBodyLimit))
			r.Use(s.RateLimit(scopeAdmin, s.rules.Admin))
			r.Use(Timeout(adminTimeout))

			if s.sessions != nil {
				r.Post("/admin/session", s.handleSessionCreate)
				r.Delete("/admin/session", s.handleSessionClear)
			}

			r.Group(func(r chi.Router) {
				r.Use(s.gate.Require(s.fail))
				r.Post("/codes", s.handleIssueCodes)
				r.Get("/codes", s.handleListCodes)
				r.Delete("/codes", s.handleDeleteCode)
				r.Post("/codes/batch-delete", s.handleBatchDelete)
				r.Get("/codes/export", s.handleExport)
				r.Get("/stats", s.handleStats)
				r.Get("/logs", s.handleLogs)
				r.Get("/users/top", s.handleTopUsers)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := make(map[string]string, len(s.health))
	healthy := true
	for name, check := range s.health {
		if err := check(ctx); err != nil {
			healthy = false
			checks[name] = "down"
			s.log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			continue
		}
		checks[name] = "ok"
	}
	status, label := http.StatusOK, "ok"
	if !healthy {
		status, label = http.StatusServiceUnavailable, "degraded"
	}
	writeJSON(w, status, map[string]any{"success": healthy, "status": label, "checks": checks})
}
