package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/llm"
)

const approvedJSON = `{"verdict":"approved","reason":"fine","policies_cited":[]}`

func fastEngine(primary, fallback domain.GenerationClient) *DecisionEngine {
	e := NewDecisionEngine(primary, fallback, zap.NewNop())
	e.SetRetryPolicy(2, time.Second, 5*time.Second)
	return e
}

func testContent() domain.ContentItem {
	return domain.ContentItem{Text: "some content", ReceivedAt: time.Now()}
}

func testRetrieved() []domain.RetrievedPolicy {
	return []domain.RetrievedPolicy{
		{PolicyRecord: domain.PolicyRecord{ID: "p1", Text: "No threats"}, Score: 0.9},
		{PolicyRecord: domain.PolicyRecord{ID: "p2", Text: "No profanity"}, Score: 0.5},
	}
}

func TestDecide_PrimarySuccess(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Responses = []string{`{"verdict":"flagged","reason":"threatening","policies_cited":["p1"]}`}
	fallback := llm.NewMockClient()

	decision, err := fastEngine(primary, fallback).Decide(context.Background(), testContent(), testRetrieved())
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictFlagged, decision.Verdict)
	assert.Equal(t, "threatening", decision.Reason)
	assert.Equal(t, []string{"p1"}, decision.PoliciesCited)
	assert.Equal(t, domain.ProviderPrimary, decision.ProviderUsed)
	assert.GreaterOrEqual(t, decision.LatencyMS, int64(0))
	assert.Len(t, primary.GenerateCalls, 1)
	assert.Empty(t, fallback.GenerateCalls, "fallback must not be called when primary succeeds")
}

func TestDecide_FallbackAfterPrimaryExhausted(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Errors = []error{&llm.APIError{Provider: "openai", Status: 503}}
	fallback := llm.NewMockClient()
	fallback.Responses = []string{approvedJSON}

	decision, err := fastEngine(primary, fallback).Decide(context.Background(), testContent(), testRetrieved())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderFallback, decision.ProviderUsed)
	assert.Len(t, primary.GenerateCalls, 3, "initial attempt plus two retries")
	assert.Len(t, fallback.GenerateCalls, 1)
}

func TestDecide_NonTransientNotRetried(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Errors = []error{&llm.APIError{Provider: "openai", Status: 400}}
	fallback := llm.NewMockClient()
	fallback.Responses = []string{approvedJSON}

	decision, err := fastEngine(primary, fallback).Decide(context.Background(), testContent(), testRetrieved())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderFallback, decision.ProviderUsed)
	assert.Len(t, primary.GenerateCalls, 1, "malformed-input errors are not retried")
}

func TestDecide_InvalidResponseFallsOver(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Responses = []string{`{"verdict":"maybe","reason":"unsure"}`}
	fallback := llm.NewMockClient()
	fallback.Responses = []string{approvedJSON}

	decision, err := fastEngine(primary, fallback).Decide(context.Background(), testContent(), testRetrieved())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderFallback, decision.ProviderUsed)
	assert.Len(t, primary.GenerateCalls, 1, "validation failure is not retried against the same provider")
}

func TestDecide_BothProvidersFail(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Errors = []error{&llm.APIError{Provider: "openai", Status: 500}}
	fallback := llm.NewMockClient()
	fallback.Errors = []error{&llm.APIError{Provider: "anthropic", Status: 500}}

	decision, err := fastEngine(primary, fallback).Decide(context.Background(), testContent(), testRetrieved())

	assert.Nil(t, decision, "no default verdict is fabricated")
	assert.ErrorIs(t, err, domain.ErrDecisionUnavailable)
}

func TestDecide_HallucinatedCitationsDropped(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Responses = []string{`{"verdict":"flagged","reason":"bad","policies_cited":["p1","ghost","p1","p2"]}`}

	decision, err := fastEngine(primary, llm.NewMockClient()).Decide(context.Background(), testContent(), testRetrieved())
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2"}, decision.PoliciesCited,
		"cited ids outside the retrieved set are dropped, duplicates collapsed")
}

func TestDecide_EmptyRetrievalStillDecides(t *testing.T) {
	primary := llm.NewMockClient()
	primary.Responses = []string{approvedJSON}

	decision, err := fastEngine(primary, llm.NewMockClient()).Decide(context.Background(), testContent(), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictApproved, decision.Verdict)
	assert.Empty(t, decision.PoliciesCited)
}

func TestDecide_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := llm.NewMockClient()
	primary.Errors = []error{context.Canceled}

	decision, err := fastEngine(primary, llm.NewMockClient()).Decide(ctx, testContent(), testRetrieved())
	assert.Nil(t, decision)
	assert.ErrorIs(t, err, domain.ErrDecisionUnavailable)
}
