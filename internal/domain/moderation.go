package domain

import (
	"context"
	"time"
)

type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictFlagged  Verdict = "flagged"
)

func ValidVerdict(v string) bool {
	switch Verdict(v) {
	case VerdictApproved, VerdictFlagged:
		return true
	}
	return false
}

type ProviderRole string

const (
	ProviderPrimary  ProviderRole = "primary"
	ProviderFallback ProviderRole = "fallback"
)

// ContentItem is one piece of user-submitted text under moderation.
// It lives for a single pipeline invocation and is never persisted.
type ContentItem struct {
	Text       string
	ReceivedAt time.Time
}

// Decision is the outcome of moderating one content item. Immutable once
// returned; PoliciesCited only ever contains ids that were present in the
// retrieved set handed to the decision engine.
type Decision struct {
	Verdict       Verdict      `json:"verdict"`
	Reason        string       `json:"reason"`
	PoliciesCited []string     `json:"policies_cited"`
	ProviderUsed  ProviderRole `json:"provider_used"`
	LatencyMS     int64        `json:"latency_ms"`
}

// EmbeddingClient turns text into a fixed-dimension vector.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient produces a raw completion for a prompt. The decision
// engine owns prompt construction and response parsing; clients only carry
// the vendor wire format.
type GenerationClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
