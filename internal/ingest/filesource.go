package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/policygate/policygate/internal/domain"
)

// FileSource reads policy statements from .txt and .md files in a
// directory, one statement per paragraph. It stands in for the external
// acquisition collaborators (scrapers, news feeds) during local operation
// and tags everything it yields as static.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) Fetch(ctx context.Context) ([]domain.RawPolicy, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("read policy dir %s: %w", s.Dir, err)
	}

	var policies []domain.RawPolicy
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".txt" && ext != ".md" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read policy file %s: %w", entry.Name(), err)
		}

		for _, paragraph := range SplitParagraphs(string(data)) {
			policies = append(policies, domain.RawPolicy{
				Text:   paragraph,
				Source: domain.SourceStatic,
			})
		}
	}

	return policies, nil
}

// SplitParagraphs splits text on blank lines, dropping empty chunks.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// StaticSource yields a fixed in-memory set of policies. Used for seeding
// and in tests.
type StaticSource struct {
	Policies []domain.RawPolicy
	Err      error
}

func (s *StaticSource) Fetch(_ context.Context) ([]domain.RawPolicy, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Policies, nil
}
