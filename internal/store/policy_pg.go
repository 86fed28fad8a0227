package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/policygate/policygate/internal/domain"
)

// PGPolicyIndex is a pgvector-backed implementation of domain.PolicyIndex,
// for deployments where the policy corpus should survive restarts. Same
// contract as MemoryPolicyIndex; ordering is done by the database.
type PGPolicyIndex struct {
	db *pgxpool.Pool

	mu  sync.Mutex
	dim int
}

func NewPGPolicyIndex(db *pgxpool.Pool) *PGPolicyIndex {
	return &PGPolicyIndex{db: db}
}

// EnsureSchema creates the policies table for the given embedding
// dimension. pgvector requires the dimension at table-creation time, so it
// is taken from the embedding client's output size at startup.
func (s *PGPolicyIndex) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(
		`CREATE EXTENSION IF NOT EXISTS vector;
		 CREATE TABLE IF NOT EXISTS policies (
		     id          TEXT PRIMARY KEY,
		     text        TEXT NOT NULL,
		     source      TEXT NOT NULL,
		     embedding   vector(%d) NOT NULL,
		     ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		 )`, dim))
	if err != nil {
		return fmt.Errorf("ensure policies schema: %w", err)
	}

	s.mu.Lock()
	s.dim = dim
	s.mu.Unlock()
	return nil
}

func (s *PGPolicyIndex) checkDim(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = n
		return nil
	}
	if n != s.dim {
		return fmt.Errorf("%w: got dimension %d, index has %d", domain.ErrDimensionMismatch, n, s.dim)
	}
	return nil
}

func (s *PGPolicyIndex) Upsert(ctx context.Context, record *domain.PolicyRecord) error {
	if err := s.checkDim(len(record.Embedding)); err != nil {
		return err
	}

	vec := pgvector.NewVector(record.Embedding)
	err := s.db.QueryRow(ctx,
		`INSERT INTO policies (id, text, source, embedding, ingested_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (id) DO UPDATE
		     SET text = EXCLUDED.text, embedding = EXCLUDED.embedding, ingested_at = NOW()
		 RETURNING ingested_at`,
		record.ID, record.Text, record.Source, vec,
	).Scan(&record.IngestedAt)
	if err != nil {
		return fmt.Errorf("upsert policy: %w", err)
	}
	return nil
}

func (s *PGPolicyIndex) Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedPolicy, error) {
	if topK <= 0 {
		return []domain.RetrievedPolicy{}, nil
	}
	if err := s.checkDim(len(embedding)); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(embedding)
	rows, err := s.db.Query(ctx,
		`SELECT id, text, source, ingested_at,
		        GREATEST(1 - (embedding <=> $1), 0) AS score
		 FROM policies
		 ORDER BY score DESC, ingested_at DESC
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("policy query: %w", err)
	}
	defer rows.Close()

	results := []domain.RetrievedPolicy{}
	for rows.Next() {
		var rp domain.RetrievedPolicy
		if err := rows.Scan(&rp.ID, &rp.Text, &rp.Source, &rp.IngestedAt, &rp.Score); err != nil {
			return nil, fmt.Errorf("scan policy row: %w", err)
		}
		results = append(results, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("policy rows: %w", err)
	}

	return results, nil
}

func (s *PGPolicyIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM policies`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count policies: %w", err)
	}
	return n, nil
}

var _ domain.PolicyIndex = (*PGPolicyIndex)(nil)
