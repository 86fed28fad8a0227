package store

import (
	"context"
	"sync"

	"github.com/policygate/policygate/internal/domain"
)

// MemoryAuditStore keeps audit records in memory, in insertion order.
// Used in tests and ephemeral runs; durable deployments use SQLite or
// Postgres.
type MemoryAuditStore struct {
	mu      sync.Mutex
	records []domain.AuditRecord

	// AppendErr, when set, makes Append fail. Lets tests exercise the
	// audit-failure path.
	AppendErr error
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Append(_ context.Context, record *domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendErr != nil {
		return s.AppendErr
	}
	s.records = append(s.records, *record)
	return nil
}

func (s *MemoryAuditStore) List(_ context.Context, limit int) ([]domain.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]domain.AuditRecord, limit)
	copy(out, s.records[:limit])
	return out, nil
}

var _ domain.AuditStore = (*MemoryAuditStore)(nil)
