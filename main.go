package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/config"
	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/handlers"
	"github.com/ekaya-inc/ekaya-reliability/pkg/llm"
	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
	mcpserver "github.com/ekaya-inc/ekaya-reliability/pkg/mcp"
	"github.com/ekaya-inc/ekaya-reliability/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-reliability/pkg/metrics"
	"github.com/ekaya-inc/ekaya-reliability/pkg/middleware"
	"github.com/ekaya-inc/ekaya-reliability/pkg/ratelimit"
	"github.com/ekaya-inc/ekaya-reliability/pkg/repositories"
	"github.com/ekaya-inc/ekaya-reliability/pkg/scoring"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Bool("metrics", cfg.Reliability.EnableMetrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", logging.Error(err))
	}
	defer db.Close()

	if err := migrate(cfg.Database.URL(), logger); err != nil {
		logger.Fatal("Failed to run migrations", logging.Error(err))
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", logging.Error(err))
	}
	var counters ratelimit.CounterStore
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		counters = ratelimit.NewRedisStore(redisClient)
	} else {
		logger.Warn("Redis not configured; rate limit counters are per-process")
		counters = ratelimit.NewMemoryStore()
	}

	// A nil *Metrics is a valid no-op observer.
	var m *metrics.Metrics
	if cfg.Reliability.EnableMetrics {
		m = metrics.New()
	}

	limiter := ratelimit.NewLimiter(counters, ratelimit.Config{
		HourlyLimit:    cfg.Reliability.HourlyLimit,
		DailyCostLimit: cfg.Reliability.DailyCostLimit,
		EnforceHourly:  cfg.Reliability.EnableMetrics,
	}, logger).WithObserver(m)

	suggestionClient, err := llm.NewSuggestionClient(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create suggestion client", logging.Error(err))
	}
	if suggestionClient == nil {
		logger.Info("AI suggestions disabled")
	}
	breaker := llm.NewCircuitBreaker(llm.CircuitBreakerConfig{
		Threshold:  cfg.AI.BreakerThreshold,
		ResetAfter: cfg.AI.BreakerResetAfter,
	})

	suggestionService := services.NewSuggestionService(suggestionClient, limiter, breaker, services.SuggestionConfig{
		Timeout:           cfg.Reliability.SuggestionTimeout,
		CostPerSuggestion: cfg.Reliability.CostPerSuggestion,
	}, m, logger)

	profiles, err := scoring.LoadRegistry(cfg.Reliability.ProfilesPath)
	if err != nil {
		logger.Fatal("Failed to load scoring profiles", zap.Error(err))
	}
	logger.Info("Scoring profiles loaded", zap.Strings("models", profiles.Models()))

	reliabilityService := services.NewReliabilityService(
		db,
		repositories.NewFieldScoreRepository(db),
		repositories.NewSummaryRepository(db),
		repositories.NewReliabilityLogRepository(db),
		profiles,
		suggestionService,
		m,
		logger,
	)

	mux := http.NewServeMux()

	checks := map[string]handlers.HealthCheck{
		"postgres": func(ctx context.Context) error { return db.Ping(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	handlers.NewHealthHandler(cfg, checks, logger).RegisterRoutes(mux)
	handlers.NewReliabilityHandler(reliabilityService, logger).RegisterRoutes(mux)
	handlers.NewRateLimitHandler(limiter, logger).RegisterRoutes(mux)

	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	mcpServer := mcpserver.NewServer(mcpserver.ServerName, cfg.Version, m, logger)
	toolChecks := make(map[string]func(context.Context) error, len(checks))
	for name, check := range checks {
		toolChecks[name] = check
	}
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, toolChecks)
	tools.RegisterReliabilityTools(mcpServer.MCP(), &tools.ReliabilityToolDeps{
		ReliabilityService: reliabilityService,
		Logger:             logger.Named("mcp-tools"),
	})
	mux.Handle("/mcp", mcpServer.Handler())

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger, m)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-reliability",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""))
		if cfg.TLSCertPath != "" {
			serveErr <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func migrate(url string, logger *zap.Logger) error {
	sqlDB, err := database.OpenSQL(url)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return database.RunMigrations(sqlDB, logger)
}
