package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	limitermw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/lacomanda/pos-terminal/internal/auth"
	"github.com/lacomanda/pos-terminal/internal/backend"
	"github.com/lacomanda/pos-terminal/internal/catalog"
	"github.com/lacomanda/pos-terminal/internal/checkout"
	"github.com/lacomanda/pos-terminal/internal/common"
	"github.com/lacomanda/pos-terminal/internal/config"
	"github.com/lacomanda/pos-terminal/internal/health"
	"github.com/lacomanda/pos-terminal/internal/obs"
	"github.com/lacomanda/pos-terminal/internal/printing"
	"github.com/lacomanda/pos-terminal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := obs.NewLogger("json", "info")
		boot.Fatal().Err(err).Msg("config load failed")
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.InitTracing(ctx, obs.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: "pos-terminal-api",
		Environment: cfg.AppEnv,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing init failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid REDIS_URL")
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Warn().Err(err).Msg("redis tracing instrumentation failed")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid redis uri for task queue")
	}
	asynqClient := asynq.NewClient(asynqOpt)
	defer asynqClient.Close()

	backendClient := backend.NewClient(cfg.BackendBaseURL, cfg.BackendToken, cfg.BackendTimeout)

	catalogSvc := &catalog.Service{
		Backend:         backendClient,
		Cache:           &catalog.Cache{R: rdb, TTL: cfg.CatalogCacheTTL},
		Logger:          logger,
		CartaIDOverride: cfg.CartaIDOverride,
	}
	if _, err := catalogSvc.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("catalog preload failed, sessions will retry on open")
	}

	enqueuer := &printing.Enqueuer{Client: asynqClient, Queue: cfg.PrintQueueName, Logger: logger}
	checkoutSvc := &checkout.Service{
		Backend:    backendClient,
		Printer:    enqueuer,
		Logger:     logger,
		BuffetMode: cfg.BuffetMode,
	}

	httpMetrics := obs.NewHTTPMetrics("pos_terminal", obs.ParseBucketsCSV(os.Getenv("METRICS_BUCKETS_MS")), nil)
	obs.MustRegisterDomainMetrics("pos_terminal", nil)

	handlers := &session.Handlers{
		Registry: session.NewRegistry(),
		Catalog:  catalogSvc,
		Backend:  backendClient,
		Checkout: checkoutSvc,
		PinGate:  auth.PinGate{Hash: cfg.SupervisorPinHash},
		Validate: validator.New(),
		Logger:   logger,

		TerminalLock: cfg.TerminalLock,
	}

	rate, err := limiter.NewRateFromFormatted(cfg.SubmitRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid SUBMIT_RATE_LIMIT")
	}
	store, err := limiterstore.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "limiter:pos"})
	if err != nil {
		logger.Fatal().Err(err).Msg("rate limiter store init failed")
	}
	rateLimit := limitermw.NewMiddleware(limiter.New(store, rate))

	authMW := auth.Middleware{Secret: []byte(cfg.JWTSecret)}
	idem := common.Idem{R: rdb, TTL: cfg.IdempotencyTTL}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.TracingMiddleware("pos-terminal-api"))
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	healthHandler := health.Handler{Redis: rdb, Backend: backendClient, Catalog: catalogSvc}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW.RequireAuth)
		r.Use(rateLimit.Handler)
		r.Use(idem.Middleware)
		handlers.Mount(r)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.AppEnv).Bool("buffet", cfg.BuffetMode).Msg("terminal api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
