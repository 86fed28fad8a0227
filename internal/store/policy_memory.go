package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/policygate/policygate/internal/domain"
)

// MemoryPolicyIndex is an in-memory vector store over policy records.
// Cosine similarity, naive linear scan; fine for hundreds of policies.
// The embedding dimension is fixed by the first record upserted.
//
// Reads run concurrently under the read lock; an upsert swaps in a copy of
// the record under the write lock, so readers see either the old or the
// new record, never a partial one.
type MemoryPolicyIndex struct {
	mu      sync.RWMutex
	records map[string]*domain.PolicyRecord
	dim     int
}

func NewMemoryPolicyIndex() *MemoryPolicyIndex {
	return &MemoryPolicyIndex{
		records: make(map[string]*domain.PolicyRecord),
	}
}

func (idx *MemoryPolicyIndex) Upsert(_ context.Context, record *domain.PolicyRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dim == 0 {
		if len(record.Embedding) == 0 {
			return fmt.Errorf("%w: record %s has empty embedding", domain.ErrDimensionMismatch, record.ID)
		}
		idx.dim = len(record.Embedding)
	} else if len(record.Embedding) != idx.dim {
		return fmt.Errorf("%w: record %s has dimension %d, index has %d",
			domain.ErrDimensionMismatch, record.ID, len(record.Embedding), idx.dim)
	}

	cp := *record
	cp.Embedding = append([]float32(nil), record.Embedding...)
	idx.records[record.ID] = &cp
	return nil
}

func (idx *MemoryPolicyIndex) Query(_ context.Context, embedding []float32, topK int) ([]domain.RetrievedPolicy, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.records) == 0 || topK <= 0 {
		return []domain.RetrievedPolicy{}, nil
	}
	if len(embedding) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			domain.ErrDimensionMismatch, len(embedding), idx.dim)
	}

	results := make([]domain.RetrievedPolicy, 0, len(idx.records))
	for _, rec := range idx.records {
		results = append(results, domain.RetrievedPolicy{
			PolicyRecord: *rec,
			Score:        cosineSimilarity(embedding, rec.Embedding),
		})
	}

	// Descending score; exact ties rank the newer record first.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].IngestedAt.After(results[j].IngestedAt)
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (idx *MemoryPolicyIndex) Count(_ context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records), nil
}

// cosineSimilarity clamps to [0, 1]: embedding magnitude carries no meaning
// for this model family, and anti-correlated vectors are as irrelevant as
// orthogonal ones for retrieval.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return float32(sim)
}

var _ domain.PolicyIndex = (*MemoryPolicyIndex)(nil)
