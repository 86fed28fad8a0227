package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/llm"
)

const (
	DefaultRetries        = 2
	DefaultAttemptTimeout = 15 * time.Second
	DefaultDecideBudget   = 60 * time.Second
	DefaultCharBudget     = 12000

	retryDelay = 500 * time.Millisecond
)

// DecisionEngine turns retrieved policies plus content into a moderation
// decision via a primary/fallback generation provider chain.
//
// One decide call walks a fixed state machine: the primary provider gets a
// bounded number of retries on transient errors, then the fallback gets a
// single attempt with the same prompt. If neither produces a response that
// passes structured-output validation, the call fails with
// domain.ErrDecisionUnavailable; a verdict is never fabricated.
type DecisionEngine struct {
	primary        domain.GenerationClient
	fallback       domain.GenerationClient
	retries        int
	attemptTimeout time.Duration
	decideBudget   time.Duration
	charBudget     int
	logger         *zap.Logger
}

func NewDecisionEngine(primary, fallback domain.GenerationClient, logger *zap.Logger) *DecisionEngine {
	return &DecisionEngine{
		primary:        primary,
		fallback:       fallback,
		retries:        DefaultRetries,
		attemptTimeout: DefaultAttemptTimeout,
		decideBudget:   DefaultDecideBudget,
		charBudget:     DefaultCharBudget,
		logger:         logger,
	}
}

// SetRetryPolicy overrides the retry count and timeouts.
func (e *DecisionEngine) SetRetryPolicy(retries int, attemptTimeout, decideBudget time.Duration) {
	if retries >= 0 {
		e.retries = retries
	}
	if attemptTimeout > 0 {
		e.attemptTimeout = attemptTimeout
	}
	if decideBudget > 0 {
		e.decideBudget = decideBudget
	}
}

// SetCharBudget overrides the augmented-prompt size cap.
func (e *DecisionEngine) SetCharBudget(budget int) {
	if budget > 0 {
		e.charBudget = budget
	}
}

// Decide builds the augmented prompt and walks the provider chain.
// PoliciesCited on the returned decision is always a subset of the ids in
// the retrieved set: anything else the model cites is dropped as a
// hallucination.
func (e *DecisionEngine) Decide(ctx context.Context, content domain.ContentItem, retrieved []domain.RetrievedPolicy) (*domain.Decision, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.decideBudget)
	defer cancel()

	prompt, includedIDs := llm.BuildModerationPrompt(content.Text, retrieved, e.charBudget)
	allowed := make(map[string]bool, len(includedIDs))
	for _, id := range includedIDs {
		allowed[id] = true
	}

	resp, role, err := e.tryChain(ctx, prompt)
	if err != nil {
		return nil, err
	}

	cited := make([]string, 0, len(resp.PoliciesCited))
	seen := make(map[string]bool)
	for _, id := range resp.PoliciesCited {
		if allowed[id] && !seen[id] {
			cited = append(cited, id)
			seen[id] = true
		}
	}

	return &domain.Decision{
		Verdict:       domain.Verdict(resp.Verdict),
		Reason:        resp.Reason,
		PoliciesCited: cited,
		ProviderUsed:  role,
		LatencyMS:     time.Since(start).Milliseconds(),
	}, nil
}

// tryChain runs TryPrimary -> TryFallback and reports which role produced
// the accepted response.
func (e *DecisionEngine) tryChain(ctx context.Context, prompt string) (*llm.ModerationResponse, domain.ProviderRole, error) {
	resp, primaryErr := e.tryProvider(ctx, e.primary, prompt, e.retries)
	if primaryErr == nil {
		return resp, domain.ProviderPrimary, nil
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecisionUnavailable, ctx.Err())
	}
	e.logger.Warn("primary provider exhausted, trying fallback", zap.Error(primaryErr))

	resp, fallbackErr := e.tryProvider(ctx, e.fallback, prompt, 0)
	if fallbackErr == nil {
		return resp, domain.ProviderFallback, nil
	}

	return nil, "", fmt.Errorf("%w: primary: %v; fallback: %v",
		domain.ErrDecisionUnavailable, primaryErr, fallbackErr)
}

// tryProvider makes up to retries+1 attempts against one client. Only
// transient failures are retried; a malformed-input error or a response
// that fails validation ends the attempts immediately.
func (e *DecisionEngine) tryProvider(ctx context.Context, client domain.GenerationClient, prompt string, retries int) (*llm.ModerationResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		raw, err := client.Generate(attemptCtx, prompt)
		cancel()

		if err != nil {
			lastErr = err
			if !llm.IsTransient(err) {
				return nil, lastErr
			}
			continue
		}

		resp, err := llm.ParseModerationResponse(raw)
		if err != nil {
			// Validation failure is not retried against the same
			// provider; the chain moves on.
			return nil, err
		}
		return resp, nil
	}

	return nil, lastErr
}
