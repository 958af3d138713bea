package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moral-torture-machine/internal/ai"
	"moral-torture-machine/internal/authutils"
	"moral-torture-machine/internal/config"
	"moral-torture-machine/internal/database"
	"moral-torture-machine/internal/handler"
	"moral-torture-machine/internal/live"
	"moral-torture-machine/internal/logger"
	"moral-torture-machine/internal/messaging"
	"moral-torture-machine/internal/repository"
	"moral-torture-machine/internal/seed"
	"moral-torture-machine/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogEncoding, Service: "mtm-server"})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized", zap.String("logLevel", cfg.LogLevel), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- External Connections ---
	var (
		pgPool      *pgxpool.Pool
		redisClient *redis.Client
		mqConn      *amqp.Connection
	)
	connectCtx, connectCancel := context.WithTimeout(ctx, time.Minute)
	g, gctx := errgroup.WithContext(connectCtx)
	g.Go(func() error {
		var err error
		pgPool, err = database.Connect(gctx, database.PoolConfig{
			DSN:         cfg.GetDSN(),
			MaxConns:    cfg.DBMaxConns,
			IdleTimeout: cfg.DBIdleTimeout,
		}, log)
		return err
	})
	g.Go(func() error {
		var err error
		redisClient, err = setupRedis(gctx, cfg)
		return err
	})
	if cfg.AnalyticsEnabled {
		g.Go(func() error {
			var err error
			mqConn, err = messaging.Connect(gctx, cfg.RabbitMQURL, log)
			return err
		})
	}
	err = g.Wait()
	connectCancel()
	if err != nil {
		zap.L().Fatal("Failed to connect to dependencies", zap.Error(err))
	}
	defer pgPool.Close()
	defer redisClient.Close()
	if mqConn != nil {
		defer mqConn.Close()
	}
	zap.L().Info("Connected to PostgreSQL and Redis", zap.Bool("rabbitmq", mqConn != nil))

	if err := database.NewMigrator(cfg.GetDSN(), log).Up(); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	// --- Dependency Injection ---
	dilemmaRepo := repository.NewCachedDilemmaRepository(
		repository.NewPgDilemmaRepository(pgPool, log), redisClient, cfg.CacheTTL, log)
	flowRepo := repository.NewCachedStoryFlowRepository(
		repository.NewPgStoryFlowRepository(pgPool, log), redisClient, cfg.CacheTTL, log)
	nodeVoteRepo := repository.NewPgStoryNodeVoteRepository(pgPool, log)

	var publisher messaging.AnalyticsPublisher = messaging.NopAnalyticsPublisher{}
	if mqConn != nil {
		publisher, err = messaging.NewRabbitMQAnalyticsPublisher(mqConn, cfg.AnalyticsQueueName, log)
		if err != nil {
			zap.L().Fatal("Failed to create analytics publisher", zap.Error(err))
		}
	}

	completer, err := setupAI(cfg, log)
	if err != nil {
		zap.L().Fatal("Failed to set up AI client", zap.Error(err))
	}

	hub := live.NewHub(cfg.CORSOrigins(), log)
	go hub.Run(ctx)

	adminSvc := service.NewAdminService(dilemmaRepo, flowRepo, log)
	deps := handler.Deps{
		Dilemmas: service.NewDilemmaService(dilemmaRepo, hub, log),
		Generator: service.NewGeneratorService(dilemmaRepo, completer, service.GeneratorConfig{
			Temperature:        cfg.AITemperature,
			Persist:            cfg.GeneratorPersist,
			DuplicateThreshold: cfg.DuplicateThreshold,
		}, log),
		Analysis: service.NewAnalysisService(completer, cfg.AITemperature, log),
		Stories:  service.NewStoryService(flowRepo, nodeVoteRepo, log),
		Admin:    adminSvc,
		Tracker:  service.NewAnalyticsTracker(publisher, log),
		Health:   service.NewHealthService(log, healthChecks(cfg, pgPool, redisClient, mqConn)...),
		Hub:      hub,
	}
	if cfg.AdminJWTSecret != "" {
		verifier, err := authutils.NewJWTVerifier(cfg.AdminJWTSecret, log)
		if err != nil {
			zap.L().Fatal("Failed to create admin token verifier", zap.Error(err))
		}
		deps.Verifier = verifier.VerifyToken
	}

	if cfg.SeedDir != "" {
		results, err := seed.NewLoader(adminSvc, log).LoadDir(ctx, cfg.SeedDir)
		if err != nil {
			zap.L().Fatal("Failed to seed database", zap.String("dir", cfg.SeedDir), zap.Error(err))
		}
		zap.L().Info("Seed data loaded", zap.Int("files", len(results)))
	}

	apiHandler := handler.NewAPIHandler(deps, log)
	router := handler.NewRouter(handler.RouterConfig{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORSOrigins(),
		RateLimitStore: handler.NewRateLimitStore(redisClient, cfg.AIRateLimit, cfg.AIRateLimitWindow),
		Metrics:        true,
	}, apiHandler, log)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		zap.L().Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		zap.L().Error("Failed to close analytics publisher", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// setupRedis creates the client and pings it, retrying while Redis starts up.
func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	const maxRetries = 5
	retryDelay := 2 * time.Second
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return client, nil
		}
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, lastErr)
}

// setupAI picks the provider and model chain from the configuration.
func setupAI(cfg *config.Config, log *zap.Logger) (*ai.FallbackClient, error) {
	httpClient := &http.Client{Timeout: cfg.AITimeout + 5*time.Second}

	switch cfg.AIProvider {
	case "ollama":
		provider, err := ai.NewOllamaProvider(cfg.OllamaURL, httpClient)
		if err != nil {
			return nil, err
		}
		chain := config.SplitList(cfg.AIModels)
		if len(chain) == 0 {
			chain = []string{cfg.OllamaModel}
		}
		return ai.NewFallbackClient(provider, chain, log, ai.WithTimeout(cfg.AITimeout))
	case "openai", "":
		if cfg.AIAPIKey == "" {
			zap.L().Warn("AI API key is not set, generation and analysis will be unavailable")
		}
		provider := ai.NewOpenAIProvider(cfg.AIAPIKey, cfg.AIBaseURL, httpClient)
		return ai.NewFallbackClient(provider, cfg.ModelChain(), log, ai.WithTimeout(cfg.AITimeout))
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// healthChecks lists the probes of GET /health. Only PostgreSQL is critical.
func healthChecks(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client, mq *amqp.Connection) []service.HealthCheck {
	checks := []service.HealthCheck{
		{Name: "postgres", Critical: true, Check: pool.Ping},
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if mq != nil {
		checks = append(checks, service.HealthCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if mq.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		}})
	}
	if cfg.AIProvider != "ollama" {
		checks = append(checks, service.HealthCheck{Name: "ai_api_key", Check: func(context.Context) error {
			if cfg.AIAPIKey == "" {
				return errors.New("API key not configured")
			}
			return nil
		}})
	}
	return checks
}
