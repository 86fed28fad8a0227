package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/api/handlers"
	mw "github.com/policygate/policygate/internal/api/middleware"
	"github.com/policygate/policygate/internal/buildconfig"
	"github.com/policygate/policygate/internal/config"
	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/ingest"
	"github.com/policygate/policygate/internal/metrics"
	"github.com/policygate/policygate/internal/service"
)

// Deps are the storage backends and external clients the app is wired
// with. Which implementations back them (in-memory vs pgvector index,
// SQLite vs Postgres audit log) is decided in main from config.
type Deps struct {
	Index      domain.PolicyIndex
	AuditStore domain.AuditStore
	Embedder   domain.EmbeddingClient
	Primary    domain.GenerationClient
	Fallback   domain.GenerationClient
	Sources    []domain.PolicySource
	Collector  *metrics.Collector
	Logger     *zap.Logger
}

// App holds the router and the wired pipeline for lifecycle management.
type App struct {
	Router   *chi.Mux
	Pipeline *service.ModerationPipeline
	Ingestor *ingest.Ingestor
}

func NewApp(deps Deps) *App {
	logger := deps.Logger

	// Services
	engine := service.NewDecisionEngine(deps.Primary, deps.Fallback, logger)
	engine.SetRetryPolicy(config.GenerationRetries(), config.GenerationTimeout(), config.DecideBudget())
	engine.SetCharBudget(config.PromptCharBudget())

	auditor := service.NewAuditLogger(deps.AuditStore, logger)

	pipeline := service.NewModerationPipeline(deps.Embedder, deps.Index, engine, auditor, logger)
	pipeline.SetTopK(config.TopK())
	pipeline.SetCollector(deps.Collector)

	ingestor := ingest.NewIngestor(deps.Index, deps.Embedder, config.IngestConcurrency(), logger)

	// Handlers
	moderationHandler := handlers.NewModerationHandler(pipeline)
	policyHandler := handlers.NewPolicyHandler(ingestor, deps.Sources, deps.Index, deps.Collector, logger)
	auditHandler := handlers.NewAuditHandler(auditor)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler())

	// Metrics (no auth)
	if deps.Collector != nil {
		r.Method(http.MethodGet, "/metrics", deps.Collector.Handler())
	}

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(config.APIKey()))

		r.Post("/moderate", moderationHandler.Moderate)

		r.Route("/policies", func(r chi.Router) {
			r.Post("/ingest", policyHandler.Ingest)
			r.Get("/count", policyHandler.Count)
		})

		r.Get("/audit", auditHandler.List)
	})

	return &App{
		Router:   r,
		Pipeline: pipeline,
		Ingestor: ingestor,
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
			"commit":  buildconfig.Commit(),
		})
	}
}
