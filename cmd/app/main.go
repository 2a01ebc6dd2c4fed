// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"portrait-studio/internal/config"
	"portrait-studio/internal/domain/ports/adapter"
	"portrait-studio/internal/domain/ports/repository"
	imageAdapters "portrait-studio/internal/infra/adapters/image"
	"portrait-studio/internal/infra/api"
	"portrait-studio/internal/infra/db/memory"
	pg "portrait-studio/internal/infra/db/postgres"
	"portrait-studio/internal/infra/i18n"
	"portrait-studio/internal/infra/logging"
	"portrait-studio/internal/infra/metrics"
	red "portrait-studio/internal/infra/redis"
	"portrait-studio/internal/infra/sched"
	"portrait-studio/internal/infra/worker"
	"portrait-studio/internal/usecase"

	"github.com/rs/zerolog"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

type storage struct {
	codes   repository.CodeRepository
	credits repository.CreditRepository
	usage   repository.UsageRepository
	tm      repository.TransactionManager
	ping    api.HealthCheck
	close   func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (memory storage, noop provider, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Storage.Backend)

	// ---- Redis (optional) ----
	var redisClient red.RedisClient
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		redisClient = rc
	}

	// ---- Storage ----
	st, err := openStorage(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("storage")
	}
	defer st.close()

	// ---- Image provider ----
	gen, err := newImageGenerator(ctx, &cfg.Generation)
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.Generation.Provider).Msg("image provider")
	}
	gen = imageAdapters.NewLimited(gen, cfg.Generation.ConcurrentLimit)
	logger.Info().Str("provider", gen.Name()).Int("concurrent_limit", cfg.Generation.ConcurrentLimit).Msg("image provider ready")

	// ---- Background work ----
	pool := worker.NewPool(0, logger)
	pool.Start(context.WithoutCancel(ctx))
	defer pool.Stop()

	// ---- Use cases ----
	codeUC := usecase.NewCodeUseCase(st.codes, st.credits, st.usage, st.tm, logger, cfg.Runtime.Dev)
	creditUC := usecase.NewCreditUseCase(st.credits, st.usage, logger)
	genUC := usecase.NewGenerationUseCase(st.credits, st.usage, gen, pool, usecase.GenerationOptions{Timeout: cfg.Generation.Timeout}, logger, cfg.Runtime.Dev)
	adminUC := usecase.NewAdminUseCase(st.codes, st.credits, st.usage, cfg.Codes.Alphabet, logger)

	// ---- HTTP ----
	msgs, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Server.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("messages")
	}
	var sessions *api.SessionManager
	if cfg.Admin.SessionSecret != "" {
		sessions = api.NewSessionManager(cfg.Admin.SessionSecret, cfg.Admin.SecureCookie, cfg.Admin.SessionTTL)
	}
	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		logger.Fatal().Err(err).Msg("trusted proxies")
	}
	health := map[string]api.HealthCheck{"storage": st.ping}
	var limiter api.Limiter
	if redisClient != nil {
		limiter = red.NewRateLimiter(redisClient)
		health["redis"] = redisClient.Ping
	}

	srv := api.NewServer(api.Deps{
		Codes:          codeUC,
		Credits:        creditUC,
		Generation:     genUC,
		Admin:          adminUC,
		Gate:           api.NewAdminGate(cfg.Admin.Password, sessions, logger),
		Sessions:       sessions,
		Limiter:        limiter,
		Messages:       msgs,
		RateLimit:      cfg.RateLimit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TrustedProxies: proxies,
		Health:         health,
		Metrics:        cfg.Metrics.Enabled,
		Dev:            cfg.Runtime.Dev,
	}, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

func openStorage(ctx context.Context, cfg *config.Config, redisClient red.RedisClient, logger *zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Backend {
	case "memory":
		logger.Warn().Msg("using in-memory storage; all data is lost on exit")
		s := memory.NewStore()
		return &storage{
			codes:   memory.NewCodeRepo(s),
			credits: memory.NewCreditRepo(s),
			usage:   memory.NewUsageRepo(s),
			tm:      memory.NewTxManager(s),
			ping:    s.Ping,
			close:   func() {},
		}, nil

	case "postgres":
		pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		var credits repository.CreditRepository = pg.NewPostgresCreditRepo(pool)
		if redisClient != nil {
			credits = pg.NewCreditRepoCacheDecorator(credits, redisClient, cfg.Redis.TTL)
		}

		statsWorker := sched.NewPoolStatsWorker(0, func() (int32, int32, int32) {
			s := pool.Stat()
			return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
		}, logger)
		go func() { _ = statsWorker.Run(ctx) }()

		return &storage{
			codes:   pg.NewPostgresCodeRepo(pool),
			credits: credits,
			usage:   pg.NewPostgresUsageRepo(pool),
			tm:      pg.NewTxManager(pool),
			ping:    pool.Ping,
			close:   pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func newImageGenerator(ctx context.Context, g *config.GenerationConfig) (adapter.ImageGenerator, error) {
	switch g.Provider {
	case "http":
		return imageAdapters.NewHTTPAdapter(g.Endpoint, g.APIKey, &http.Client{})
	case "gemini":
		return imageAdapters.NewGeminiAdapter(ctx, g.GeminiKey, g.GeminiURL, g.GeminiModel)
	case "openai":
		return imageAdapters.NewOpenAIAdapter(g.OpenAIKey, g.OpenAIURL, g.OpenAIModel)
	case "noop":
		return imageAdapters.NewNoopAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", g.Provider)
	}
}
