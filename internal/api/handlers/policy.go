package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/ingest"
	"github.com/policygate/policygate/internal/metrics"
)

type PolicyHandler struct {
	ingestor  *ingest.Ingestor
	sources   []domain.PolicySource
	index     domain.PolicyIndex
	collector *metrics.Collector
	logger    *zap.Logger
}

func NewPolicyHandler(ingestor *ingest.Ingestor, sources []domain.PolicySource, index domain.PolicyIndex, collector *metrics.Collector, logger *zap.Logger) *PolicyHandler {
	return &PolicyHandler{
		ingestor:  ingestor,
		sources:   sources,
		index:     index,
		collector: collector,
		logger:    logger,
	}
}

type ingestResponse struct {
	Upserted int `json:"upserted"`
}

// Ingest triggers a full ingestion run over the configured sources.
// Idempotent for unchanged policy text.
func (h *PolicyHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	n, err := h.ingestor.IngestAll(r.Context(), h.sources)
	if err != nil {
		h.logger.Error("ingestion failed", zap.Int("upserted", n), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	if h.collector != nil {
		h.collector.RecordIngested(n)
	}

	writeJSON(w, http.StatusOK, ingestResponse{Upserted: n})
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *PolicyHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.index.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count policies")
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
