package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/policygate/policygate/internal/domain"
)

// PGAuditStore persists audit records to Postgres, for deployments already
// running pgvector for the policy index. Append-only: no update or delete.
type PGAuditStore struct {
	db *pgxpool.Pool
}

func NewPGAuditStore(db *pgxpool.Pool) *PGAuditStore {
	return &PGAuditStore{db: db}
}

func (s *PGAuditStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS audit_log (
		     seq            BIGSERIAL PRIMARY KEY,
		     event_id       UUID NOT NULL UNIQUE,
		     timestamp      TIMESTAMPTZ NOT NULL,
		     content_hash   TEXT NOT NULL,
		     content_length INTEGER NOT NULL,
		     verdict        TEXT NOT NULL,
		     provider_used  TEXT NOT NULL
		 )`)
	if err != nil {
		return fmt.Errorf("ensure audit_log schema: %w", err)
	}
	return nil
}

func (s *PGAuditStore) Append(ctx context.Context, record *domain.AuditRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_log (event_id, timestamp, content_hash, content_length, verdict, provider_used)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.EventID, record.Timestamp, record.ContentHash, record.ContentLength,
		record.Verdict, record.ProviderUsed,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditWriteFailed, err)
	}
	return nil
}

func (s *PGAuditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT event_id, timestamp, content_hash, content_length, verdict, provider_used
		 FROM audit_log ORDER BY seq ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		if err := rows.Scan(&rec.EventID, &rec.Timestamp, &rec.ContentHash, &rec.ContentLength,
			&rec.Verdict, &rec.ProviderUsed); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}

	return records, nil
}

var _ domain.AuditStore = (*PGAuditStore)(nil)
