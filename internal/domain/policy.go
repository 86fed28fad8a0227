package domain

import (
	"context"
	"time"
)

type SourceTag string

const (
	SourceStatic   SourceTag = "static"
	SourceScraped  SourceTag = "scraped"
	SourceNewsFeed SourceTag = "newsfeed"
)

func ValidSourceTag(s string) bool {
	switch SourceTag(s) {
	case SourceStatic, SourceScraped, SourceNewsFeed:
		return true
	}
	return false
}

// PolicyRecord is one compliance policy statement held in the index.
// ID is content-addressed: identical normalized text from the same source
// always maps to the same record, so re-ingestion is idempotent.
type PolicyRecord struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Source     SourceTag `json:"source"`
	Embedding  []float32 `json:"-"`
	IngestedAt time.Time `json:"ingested_at"`
}

// RawPolicy is what a PolicySource yields before normalization.
type RawPolicy struct {
	Text   string
	Source SourceTag
}

// PolicySource is the boundary to policy acquisition (static corpora,
// scrapers, news feeds). The core never fetches policy text itself.
type PolicySource interface {
	Fetch(ctx context.Context) ([]RawPolicy, error)
}

// RetrievedPolicy is a policy record paired with its similarity to a query.
type RetrievedPolicy struct {
	PolicyRecord
	Score float32 `json:"score"`
}

// PolicyIndex stores policy records and answers k-nearest-neighbor queries
// by cosine similarity. Results are ordered by non-increasing score; exact
// ties rank the newer record first. Embedding dimensionality is fixed by
// the first record upserted.
type PolicyIndex interface {
	Upsert(ctx context.Context, record *PolicyRecord) error
	Query(ctx context.Context, embedding []float32, topK int) ([]RetrievedPolicy, error)
	Count(ctx context.Context) (int, error)
}
