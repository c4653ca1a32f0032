package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/medguard-interaction-server/internal/api"
	"github.com/medguard-interaction-server/internal/config"
	"github.com/medguard-interaction-server/internal/dataset"
	"github.com/medguard-interaction-server/internal/history"
	"github.com/medguard-interaction-server/internal/service"
	"github.com/medguard-interaction-server/pkg/terminology"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// A malformed rule set is a fatal startup error; serving with broken
	// rules could silently pass dangerous combinations.
	ds := dataset.Default()
	if err := ds.Validate(); err != nil {
		logger.WithError(err).Fatal("Rule set validation failed")
	}

	// Terminology client behind a circuit breaker.
	termClient := terminology.NewBreakerClient(
		terminology.NewRxNavClient(terminology.Config{
			BaseURL:    cfg.Terminology.BaseURL,
			Timeout:    cfg.Terminology.Timeout,
			RateLimit:  cfg.Terminology.RateLimit,
			MaxRetries: cfg.Terminology.MaxRetries,
		}),
		terminology.CircuitBreakerConfig{
			MaxRequests:      cfg.Terminology.CircuitBreaker.MaxRequests,
			Interval:         cfg.Terminology.CircuitBreaker.Interval,
			Timeout:          cfg.Terminology.CircuitBreaker.Timeout,
			FailureThreshold: cfg.Terminology.CircuitBreaker.FailureThreshold,
		},
		logger,
	)

	// Optional distributed resolution cache. An unreachable Redis downgrades
	// to in-memory caching only.
	var redisCache *terminology.IdentityCache
	if cfg.Resolver.RedisURL != "" {
		redisCache, err = terminology.NewIdentityCache(terminology.CacheConfig{
			RedisURL:   cfg.Resolver.RedisURL,
			DefaultTTL: cfg.Resolver.RedisTTL,
		})
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable, continuing with memory cache only")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	resolver, err := service.NewCachedDrugResolver(ds, service.ResolverConfig{
		MemoryCacheTTL:     cfg.Resolver.CacheTTL,
		RedisCacheTTL:      cfg.Resolver.RedisTTL,
		MaxMemorySize:      cfg.Resolver.CacheSize,
		MaxConcurrency:     cfg.Resolver.MaxConcurrency,
		TerminologyTimeout: cfg.Terminology.Timeout,
	}, termClient, redisCache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create drug resolver")
	}

	ruleStore, err := service.NewRuleStore(ds, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load interaction rules")
	}

	matcher := service.NewPatientSafetyMatcher(ds, logger)

	engine, err := service.NewEvaluationEngine(resolver, ruleStore, matcher, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create evaluation engine")
	}

	historyStore := openHistoryStore(cfg.History.Enabled, cfg.History.Backend,
		cfg.History.SQLitePath, cfg.History.PostgresURL, logger)
	if historyStore != nil {
		defer historyStore.Close()
	}

	server := api.NewServer(configManager, engine, resolver, ruleStore, historyStore, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":             cfg.Server.Host,
		"port":             cfg.Server.Port,
		"rule_set_version": ruleStore.Version(),
	}).Info("Starting medication interaction server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// openHistoryStore opens the configured history backend. History is optional;
// a failure to open it disables persistence instead of aborting startup.
func openHistoryStore(enabled bool, backend, sqlitePath, postgresURL string, logger *logrus.Logger) history.Store {
	if !enabled {
		return nil
	}

	switch backend {
	case "postgres":
		store, err := history.NewPostgresStoreFromURL(postgresURL)
		if err != nil {
			logger.WithError(err).Warn("Postgres history unavailable, continuing without history")
			return nil
		}
		return store
	default:
		store, err := history.NewSQLiteStore(sqlitePath)
		if err != nil {
			logger.WithError(err).Warn("SQLite history unavailable, continuing without history")
			return nil
		}
		return store
	}
}
