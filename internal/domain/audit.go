package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is the anonymized trail of one moderation decision.
// ContentHash is a one-way digest; the raw content text must never appear
// here. Records are append-only and immutable once written.
type AuditRecord struct {
	EventID       uuid.UUID    `json:"event_id"`
	Timestamp     time.Time    `json:"timestamp"`
	ContentHash   string       `json:"content_hash"`
	ContentLength int          `json:"content_length"`
	Verdict       Verdict      `json:"verdict"`
	ProviderUsed  ProviderRole `json:"provider_used"`
}

// AuditStore persists audit records. Append never mutates existing rows;
// List returns records in insertion order for compliance review.
type AuditStore interface {
	Append(ctx context.Context, record *AuditRecord) error
	List(ctx context.Context, limit int) ([]AuditRecord, error)
}
