package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/policygate/policygate/internal/domain"
)

// policyIDLen is the hex length of a content-addressed policy id. Short
// enough to stay readable inside a prompt, long enough that collisions are
// not a concern at this corpus size.
const policyIDLen = 16

var blankLines = regexp.MustCompile(`\n\s*\n+`)

// Ingestor pulls raw policy text from sources, normalizes it, embeds it,
// and upserts it into the policy index. Ids are content-addressed, so
// re-ingesting an unchanged source is a no-op on the index.
type Ingestor struct {
	index       domain.PolicyIndex
	embedder    domain.EmbeddingClient
	concurrency int
	logger      *zap.Logger
}

func NewIngestor(index domain.PolicyIndex, embedder domain.EmbeddingClient, concurrency int, logger *zap.Logger) *Ingestor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Ingestor{
		index:       index,
		embedder:    embedder,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Ingest fetches every policy the source yields and upserts the usable
// ones. A policy whose embedding fails is logged and skipped; one bad
// policy must not abort the rest. Returns the number of records upserted.
func (g *Ingestor) Ingest(ctx context.Context, source domain.PolicySource) (int, error) {
	raw, err := source.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch policies: %w", err)
	}

	var upserted atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for _, rp := range raw {
		text := Normalize(rp.Text)
		if text == "" {
			continue
		}
		id := PolicyID(rp.Source, text)
		src := rp.Source

		eg.Go(func() error {
			emb, err := g.embedder.Embed(ctx, text)
			if err != nil {
				g.logger.Warn("skipping policy: embedding failed",
					zap.String("policy_id", id),
					zap.String("source", string(src)),
					zap.Error(err))
				return nil
			}

			record := &domain.PolicyRecord{
				ID:         id,
				Text:       text,
				Source:     src,
				Embedding:  emb,
				IngestedAt: time.Now().UTC(),
			}
			if err := g.index.Upsert(ctx, record); err != nil {
				// Dimension mismatch is a config error; abort the run.
				return fmt.Errorf("upsert policy %s: %w", id, err)
			}

			upserted.Add(1)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return int(upserted.Load()), err
	}

	g.logger.Info("policy ingestion complete",
		zap.Int("fetched", len(raw)),
		zap.Int64("upserted", upserted.Load()))

	return int(upserted.Load()), nil
}

// IngestAll runs Ingest over each source in turn, summing the counts.
func (g *Ingestor) IngestAll(ctx context.Context, sources []domain.PolicySource) (int, error) {
	total := 0
	for _, src := range sources {
		n, err := g.Ingest(ctx, src)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Normalize trims surrounding whitespace and collapses runs of blank lines
// so that formatting-only differences do not produce distinct policy ids.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// PolicyID derives the content-addressed id for a normalized policy text.
// Identical text from the same source always maps to the same id.
func PolicyID(source domain.SourceTag, normalized string) string {
	h := sha256.Sum256([]byte(string(source) + "\x00" + normalized))
	return hex.EncodeToString(h[:])[:policyIDLen]
}
