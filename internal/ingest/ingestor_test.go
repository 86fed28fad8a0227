package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/embedding"
	"github.com/policygate/policygate/internal/store"
)

// failingEmbedder fails for texts in Fail, otherwise delegates to the
// deterministic mock.
type failingEmbedder struct {
	inner *embedding.MockClient
	Fail  map[string]bool
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.Fail[text] {
		return nil, errors.New("embedding backend down")
	}
	return f.inner.Embed(ctx, text)
}

func TestIngestor_Ingest(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryPolicyIndex()
	ing := NewIngestor(idx, embedding.NewMockClient(), 2, zap.NewNop())

	src := &StaticSource{Policies: []domain.RawPolicy{
		{Text: "No profanity or harassment", Source: domain.SourceStatic},
		{Text: "Negative reviews must not include threats", Source: domain.SourceScraped},
		{Text: "   \n\n  ", Source: domain.SourceStatic}, // empty after normalization
	}}

	n, err := ing.Ingest(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestor_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryPolicyIndex()
	ing := NewIngestor(idx, embedding.NewMockClient(), 2, zap.NewNop())

	src := &StaticSource{Policies: []domain.RawPolicy{
		{Text: "No profanity or harassment", Source: domain.SourceStatic},
		{Text: "Negative reviews must not include threats", Source: domain.SourceScraped},
	}}

	_, err := ing.Ingest(ctx, src)
	require.NoError(t, err)

	firstIDs := queryIDs(t, ctx, idx)

	// Re-ingesting identical text from the same sources changes nothing.
	_, err = ing.Ingest(ctx, src)
	require.NoError(t, err)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, firstIDs, queryIDs(t, ctx, idx))
}

func TestIngestor_SkipsFailedEmbedding(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryPolicyIndex()
	embedder := &failingEmbedder{
		inner: embedding.NewMockClient(),
		Fail:  map[string]bool{"Bad policy": true},
	}
	ing := NewIngestor(idx, embedder, 1, zap.NewNop())

	src := &StaticSource{Policies: []domain.RawPolicy{
		{Text: "Good policy one", Source: domain.SourceStatic},
		{Text: "Bad policy", Source: domain.SourceStatic},
		{Text: "Good policy two", Source: domain.SourceStatic},
	}}

	n, err := ing.Ingest(ctx, src)
	require.NoError(t, err, "one bad policy must not abort the rest")
	assert.Equal(t, 2, n)
}

func TestIngestor_FetchError(t *testing.T) {
	ctx := context.Background()
	idx := store.NewMemoryPolicyIndex()
	ing := NewIngestor(idx, embedding.NewMockClient(), 1, zap.NewNop())

	src := &StaticSource{Err: errors.New("feed unreachable")}
	_, err := ing.Ingest(ctx, src)
	assert.Error(t, err)
}

func TestPolicyID_ContentAddressed(t *testing.T) {
	a := PolicyID(domain.SourceStatic, "No profanity")
	b := PolicyID(domain.SourceStatic, "No profanity")
	assert.Equal(t, a, b, "identical text and source must map to the same id")

	c := PolicyID(domain.SourceScraped, "No profanity")
	assert.NotEqual(t, a, c, "same text from a different source is a different record")

	d := PolicyID(domain.SourceStatic, "No spam")
	assert.NotEqual(t, a, d)
	assert.Len(t, a, policyIDLen)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb", Normalize("  a\n\n\nb  "))
	assert.Equal(t, "a\nb", Normalize("a\r\n\r\nb"))
	assert.Equal(t, "", Normalize("  \n\n \t "))

	// Formatting-only differences must not change the id.
	assert.Equal(t,
		PolicyID(domain.SourceStatic, Normalize("No spam\n\n\nallowed")),
		PolicyID(domain.SourceStatic, Normalize("  No spam\nallowed  ")))
}

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "conduct.txt"),
		[]byte("No profanity or harassment\n\nNo doxxing"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"),
		[]byte(`{"ignored": true}`), 0o644))

	src := NewFileSource(dir)
	policies, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)

	assert.Equal(t, "No profanity or harassment", policies[0].Text)
	assert.Equal(t, "No doxxing", policies[1].Text)
	assert.Equal(t, domain.SourceStatic, policies[0].Source)
}

func queryIDs(t *testing.T, ctx context.Context, idx domain.PolicyIndex) []string {
	t.Helper()
	emb, err := embedding.NewMockClient().Embed(ctx, "query")
	require.NoError(t, err)
	results, err := idx.Query(ctx, emb, 100)
	require.NoError(t, err)
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}
