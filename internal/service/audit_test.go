package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/store"
)

func TestAuditLogger_Record(t *testing.T) {
	ctx := context.Background()
	auditStore := store.NewMemoryAuditStore()
	auditor := NewAuditLogger(auditStore, zap.NewNop())

	content := domain.ContentItem{Text: "This service is terrible!", ReceivedAt: time.Now()}
	decision := &domain.Decision{
		Verdict:      domain.VerdictApproved,
		Reason:       "Critical but non-threatening opinion",
		ProviderUsed: domain.ProviderPrimary,
	}

	record, err := auditor.Record(ctx, content, decision)
	require.NoError(t, err)

	assert.NotEqual(t, record.EventID.String(), "")
	assert.Equal(t, len(content.Text), record.ContentLength)
	assert.Equal(t, domain.VerdictApproved, record.Verdict)
	assert.Equal(t, domain.ProviderPrimary, record.ProviderUsed)

	// Anonymization contract: the raw text never appears in the record.
	assert.NotContains(t, record.ContentHash, content.Text)
	assert.NotEqual(t, content.Text, record.ContentHash)
	assert.Len(t, record.ContentHash, 64)

	stored, err := auditStore.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, record.EventID, stored[0].EventID)
}

func TestHashContent_Stable(t *testing.T) {
	a := HashContent("This service is terrible!")
	b := HashContent("This service is terrible!")
	c := HashContent("This service is great!")

	assert.Equal(t, a, b, "hash must be stable across invocations")
	assert.NotEqual(t, a, c)
	assert.False(t, strings.Contains(a, "terrible"))
}

func TestAuditLogger_WriteFailure(t *testing.T) {
	ctx := context.Background()
	auditStore := store.NewMemoryAuditStore()
	auditStore.AppendErr = domain.ErrAuditWriteFailed
	auditor := NewAuditLogger(auditStore, zap.NewNop())

	content := domain.ContentItem{Text: "hello", ReceivedAt: time.Now()}
	decision := &domain.Decision{Verdict: domain.VerdictApproved, ProviderUsed: domain.ProviderPrimary}

	_, err := auditor.Record(ctx, content, decision)
	assert.ErrorIs(t, err, domain.ErrAuditWriteFailed)
}
