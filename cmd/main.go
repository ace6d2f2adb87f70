package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"argos/internal/adapters/config"
	"argos/internal/adapters/embeddings"
	"argos/internal/adapters/errors/noop"
	"argos/internal/adapters/errors/sentry"
	"argos/internal/adapters/kafka"
	redisclient "argos/internal/adapters/redis"
	"argos/internal/adapters/sentiment"
	"argos/internal/agents"
	"argos/internal/api"
	"argos/internal/api/decisions"
	"argos/internal/api/health"
	"argos/internal/consensus"
	"argos/internal/debate"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/internal/events"
	"argos/internal/metrics"
	"argos/internal/orchestrator"
	memstore "argos/internal/repository/memory"
	"argos/internal/repository/postgres"
	redisrepo "argos/internal/repository/redis"
	"argos/internal/risk"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics
	metrics.Init()

	// Initialize storage
	db := initPostgres(cfg, log)
	store, memory := initStores(cfg, db, log)

	// Initialize agent weights
	weights, redisConn := initWeights(cfg, log)
	if redisConn != nil {
		defer redisConn.Close()
	}

	// Initialize Kafka publisher
	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()
	publisher := events.NewPublisher(producer, log)

	// Initialize the pipeline
	pool := agents.WorkerPool()
	advocate := agents.NewDevilsAdvocate(cfg.Pipeline.VetoThreshold, nil)
	engine := consensus.NewEngine(cfg.Pipeline, weights, log)
	snapshots := initSnapshots(cfg, log)

	coordinator := debate.NewCoordinator(cfg.Debate, pool, advocate, snapshots, log)
	orch := orchestrator.New(cfg.Pipeline, pool, advocate, engine, snapshots, store, memory, log)

	// Initialize HTTP server
	rdb := redisClientOrNil(redisConn)
	healthHandler := health.New(log, db, rdb, cfg.App.Name)
	guardrail := risk.NewPolicyValidator(cfg.Pipeline, log)
	decisionsHandler := decisions.New(orch, coordinator, store, publisher, guardrail, log)
	server := api.NewServer(api.ServerConfig{
		Port:        cfg.App.HTTPPort,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	}, healthHandler, decisionsHandler, log)

	log.Info("System initialized successfully")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(); err != nil {
			log.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, server, errorTracker, log)
}

// loadConfig loads application configuration from environment
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// initLogger initializes structured logging
func initLogger(cfg *config.Config) error {
	return logger.Init(cfg.App.LogLevel, cfg.App.Env)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initPostgres connects to PostgreSQL; returns nil when unavailable so the
// pipeline can fall back to in-memory storage
func initPostgres(cfg *config.Config, log *logger.Logger) *sqlx.DB {
	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Warnf("PostgreSQL unavailable, using in-memory storage: %v", err)
		return nil
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxConns)
	log.Info("PostgreSQL connected")
	return db
}

// initStores wires the decision store and trade memory. Trade memory needs
// both postgres and an embedding backend; anything missing degrades to the
// in-memory implementations.
func initStores(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (decision.Store, decision.TradeMemory) {
	if db == nil {
		return memstore.NewDecisionStore(), memstore.NewTradeMemory()
	}

	store := postgres.NewDecisionRepository(db)

	if cfg.Sentiment.APIKey == "" {
		log.Info("No embedding backend configured, trade memory is in-memory")
		return store, memstore.NewTradeMemory()
	}

	embedder, err := embeddings.NewOpenAIProvider(cfg.Sentiment.APIKey, "", 30*time.Second)
	if err != nil {
		log.Warnf("Failed to initialize embeddings: %v", err)
		return store, memstore.NewTradeMemory()
	}

	return store, postgres.NewTradeMemoryRepository(db, embedder)
}

// initSnapshots wires the market snapshot source: static fixtures until the
// live indicator pipeline is attached, with LLM sentiment enrichment when an
// API key is configured
func initSnapshots(cfg *config.Config, log *logger.Logger) market.SnapshotProvider {
	var snapshots market.SnapshotProvider = &market.StaticProvider{}

	if cfg.Sentiment.APIKey == "" {
		return snapshots
	}

	provider, err := sentiment.NewOpenAIProvider(cfg.Sentiment)
	if err != nil {
		log.Warnf("Failed to initialize sentiment provider: %v", err)
		return snapshots
	}

	log.Info("Sentiment enrichment enabled")
	return sentiment.NewSnapshotEnricher(snapshots, provider, log)
}

// initWeights wires the performance-derived agent weight source
func initWeights(cfg *config.Config, log *logger.Logger) (decision.WeightSource, *redisclient.Client) {
	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		log.Warnf("Redis unavailable, using default agent weights: %v", err)
		return nil, nil
	}

	log.Info("Redis connected")
	return redisrepo.NewWeightRepository(client.Client()), client
}

func redisClientOrNil(c *redisclient.Client) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client()
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown error: %v", err)
	}

	cancel()

	if errorTracker != nil {
		if err := errorTracker.Flush(shutdownCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
