package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/api"
	"github.com/policygate/policygate/internal/config"
	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/embedding"
	"github.com/policygate/policygate/internal/ingest"
	"github.com/policygate/policygate/internal/llm"
	"github.com/policygate/policygate/internal/metrics"
	"github.com/policygate/policygate/internal/store"
)

func main() {
	if err := config.Load(); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// External clients via provider factories
	embedder, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
	if err != nil {
		logger.Fatal("embedding client initialization failed",
			zap.String("provider", config.EmbeddingProvider()), zap.Error(err))
	}
	logger.Info("embedding client initialized", zap.String("provider", config.EmbeddingProvider()))

	primary, err := llm.NewClient(config.GenerationProvider(), config.GenerationAPIKey())
	if err != nil {
		logger.Fatal("primary generation client initialization failed",
			zap.String("provider", config.GenerationProvider()), zap.Error(err))
	}
	fallback, err := llm.NewClient(config.FallbackProvider(), config.FallbackAPIKey())
	if err != nil {
		logger.Fatal("fallback generation client initialization failed",
			zap.String("provider", config.FallbackProvider()), zap.Error(err))
	}
	logger.Info("generation chain initialized",
		zap.String("primary", config.GenerationProvider()),
		zap.String("fallback", config.FallbackProvider()))

	// Storage: pgvector-backed when DATABASE_URL is set, otherwise the
	// in-memory index with a SQLite audit log.
	var (
		index      domain.PolicyIndex
		auditStore domain.AuditStore
	)
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		// pgvector needs the embedding dimension at table-creation time.
		probe, err := embedder.Embed(ctx, "dimension probe")
		if err != nil {
			logger.Fatal("failed to probe embedding dimension", zap.Error(err))
		}

		pgIndex := store.NewPGPolicyIndex(pool)
		if err := pgIndex.EnsureSchema(ctx, len(probe)); err != nil {
			logger.Fatal("failed to ensure policy schema", zap.Error(err))
		}

		pgAudit := store.NewPGAuditStore(pool)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to ensure audit schema", zap.Error(err))
		}

		index = pgIndex
		auditStore = pgAudit
	} else {
		index = store.NewMemoryPolicyIndex()

		sqliteAudit, err := store.NewSQLiteAuditStore(config.AuditDBPath())
		if err != nil {
			logger.Fatal("failed to open audit store", zap.Error(err))
		}
		defer func() { _ = sqliteAudit.Close() }()
		auditStore = sqliteAudit
	}

	var sources []domain.PolicySource
	if dir := config.PolicyDir(); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			sources = append(sources, ingest.NewFileSource(dir))
		} else {
			logger.Warn("policy directory not found, skipping file source", zap.String("dir", dir))
		}
	}

	collector := metrics.NewCollector(nil)

	app := api.NewApp(api.Deps{
		Index:      index,
		AuditStore: auditStore,
		Embedder:   embedder,
		Primary:    primary,
		Fallback:   fallback,
		Sources:    sources,
		Collector:  collector,
		Logger:     logger,
	})

	// Initial ingestion so the index is populated before traffic arrives.
	// Failures here are logged, not fatal: moderation with an empty index
	// is degenerate but valid.
	if len(sources) > 0 {
		n, err := app.Ingestor.IngestAll(ctx, sources)
		if err != nil {
			logger.Error("initial ingestion failed", zap.Int("upserted", n), zap.Error(err))
		} else {
			collector.RecordIngested(n)
			logger.Info("initial ingestion complete", zap.Int("upserted", n))
		}
	}

	// Scheduled re-ingestion
	var scheduler *ingest.Scheduler
	if schedule := config.IngestSchedule(); schedule != "" && len(sources) > 0 {
		scheduler = ingest.NewScheduler(app.Ingestor, sources, schedule, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatal("failed to start ingest scheduler", zap.Error(err))
		}
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// newLogger builds the production logger at the configured level.
// An unparseable level falls back to info.
func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
