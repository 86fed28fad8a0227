package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policygate/policygate/internal/domain"
)

func TestSQLiteAuditStore_DurabilityPragmas(t *testing.T) {
	s, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var busyTimeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)
}

func TestSQLiteAuditStore_AppendAndList(t *testing.T) {
	ctx := context.Background()

	s, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	first := &domain.AuditRecord{
		EventID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		ContentHash:   "aaaa",
		ContentLength: 10,
		Verdict:       domain.VerdictApproved,
		ProviderUsed:  domain.ProviderPrimary,
	}
	second := &domain.AuditRecord{
		EventID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		ContentHash:   "bbbb",
		ContentLength: 20,
		Verdict:       domain.VerdictFlagged,
		ProviderUsed:  domain.ProviderFallback,
	}

	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	records, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Insertion order
	assert.Equal(t, first.EventID, records[0].EventID)
	assert.Equal(t, second.EventID, records[1].EventID)

	assert.Equal(t, "aaaa", records[0].ContentHash)
	assert.Equal(t, 10, records[0].ContentLength)
	assert.Equal(t, domain.VerdictApproved, records[0].Verdict)
	assert.Equal(t, domain.ProviderPrimary, records[0].ProviderUsed)

	assert.Equal(t, domain.VerdictFlagged, records[1].Verdict)
	assert.Equal(t, domain.ProviderFallback, records[1].ProviderUsed)
}

func TestSQLiteAuditStore_DuplicateEventIDRejected(t *testing.T) {
	ctx := context.Background()

	s, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := &domain.AuditRecord{
		EventID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		ContentHash:   "cccc",
		ContentLength: 5,
		Verdict:       domain.VerdictApproved,
		ProviderUsed:  domain.ProviderPrimary,
	}

	require.NoError(t, s.Append(ctx, rec))
	err = s.Append(ctx, rec)
	assert.ErrorIs(t, err, domain.ErrAuditWriteFailed)
}

func TestSQLiteAuditStore_ListLimit(t *testing.T) {
	ctx := context.Background()

	s, err := NewSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, &domain.AuditRecord{
			EventID:      uuid.New(),
			Timestamp:    time.Now().UTC(),
			ContentHash:  "dddd",
			Verdict:      domain.VerdictApproved,
			ProviderUsed: domain.ProviderPrimary,
		}))
	}

	records, err := s.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
