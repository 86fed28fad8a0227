package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
)

// AuditLogger writes the anonymized trail of each decision. Only the
// content's digest and length are recorded; the raw text never reaches the
// store.
type AuditLogger struct {
	store  domain.AuditStore
	logger *zap.Logger
}

func NewAuditLogger(store domain.AuditStore, logger *zap.Logger) *AuditLogger {
	return &AuditLogger{store: store, logger: logger}
}

// Record appends one audit record. A store failure surfaces as
// domain.ErrAuditWriteFailed (wrapped by the store) and does not invalidate
// the decision itself.
func (a *AuditLogger) Record(ctx context.Context, content domain.ContentItem, decision *domain.Decision) (*domain.AuditRecord, error) {
	record := &domain.AuditRecord{
		EventID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		ContentHash:   HashContent(content.Text),
		ContentLength: len(content.Text),
		Verdict:       decision.Verdict,
		ProviderUsed:  decision.ProviderUsed,
	}

	if err := a.store.Append(ctx, record); err != nil {
		a.logger.Error("audit write failed",
			zap.String("event_id", record.EventID.String()),
			zap.Error(err))
		return nil, err
	}

	return record, nil
}

// List returns audit records in insertion order for compliance review.
func (a *AuditLogger) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	return a.store.List(ctx, limit)
}

// HashContent is the one-way digest used for audit anonymization. Stable
// across invocations for identical text.
func HashContent(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
