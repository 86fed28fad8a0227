package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/metrics"
)

const DefaultTopK = 5

var ErrContentEmpty = errors.New("content is required")

// ModerationPipeline is the public entry point: embed the content, retrieve
// the most relevant policies, obtain a decision, and log it. Each stage
// fails with its own error kind; nothing is swallowed into a catch-all, so
// callers can tell "could not retrieve policies" from "could not decide"
// from "decided but not logged".
type ModerationPipeline struct {
	embedder  domain.EmbeddingClient
	index     domain.PolicyIndex
	engine    *DecisionEngine
	auditor   *AuditLogger
	topK      int
	collector *metrics.Collector
	logger    *zap.Logger
}

func NewModerationPipeline(embedder domain.EmbeddingClient, index domain.PolicyIndex, engine *DecisionEngine, auditor *AuditLogger, logger *zap.Logger) *ModerationPipeline {
	return &ModerationPipeline{
		embedder: embedder,
		index:    index,
		engine:   engine,
		auditor:  auditor,
		topK:     DefaultTopK,
		logger:   logger,
	}
}

func (p *ModerationPipeline) SetTopK(k int) {
	if k > 0 {
		p.topK = k
	}
}

func (p *ModerationPipeline) SetCollector(c *metrics.Collector) {
	p.collector = c
}

// Moderate runs the four-stage pipeline for one content item.
//
// On audit failure the decision is still returned alongside
// domain.ErrAuditWriteFailed: losing observability must not lose the
// moderation result. Every other stage failure returns a nil decision.
func (p *ModerationPipeline) Moderate(ctx context.Context, text string) (*domain.Decision, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrContentEmpty
	}

	content := domain.ContentItem{Text: text, ReceivedAt: time.Now().UTC()}

	embedding, err := p.embedder.Embed(ctx, content.Text)
	if err != nil {
		p.stageFailed("embed")
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	retrieved, err := p.index.Query(ctx, embedding, p.topK)
	if err != nil {
		p.stageFailed("retrieve")
		return nil, fmt.Errorf("retrieve policies: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decision, err := p.engine.Decide(ctx, content, retrieved)
	if err != nil {
		p.stageFailed("decide")
		return nil, err
	}

	if p.collector != nil {
		p.collector.RecordDecision(string(decision.Verdict), string(decision.ProviderUsed),
			time.Duration(decision.LatencyMS)*time.Millisecond)
	}

	record, err := p.auditor.Record(ctx, content, decision)
	if err != nil {
		p.stageFailed("audit")
		// Decision stands; the caller decides whether to surface a
		// compliance warning.
		return decision, err
	}

	p.logger.Info("moderation complete",
		zap.String("event_id", record.EventID.String()),
		zap.String("verdict", string(decision.Verdict)),
		zap.String("provider", string(decision.ProviderUsed)),
		zap.Int("policies_cited", len(decision.PoliciesCited)),
		zap.Int64("latency_ms", decision.LatencyMS))

	return decision, nil
}

func (p *ModerationPipeline) stageFailed(stage string) {
	if p.collector != nil {
		p.collector.RecordStageFailure(stage)
	}
}
