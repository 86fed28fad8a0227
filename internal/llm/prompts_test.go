package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policygate/policygate/internal/domain"
)

func retrieved(id, text string, score float32) domain.RetrievedPolicy {
	return domain.RetrievedPolicy{
		PolicyRecord: domain.PolicyRecord{ID: id, Text: text, Source: domain.SourceStatic},
		Score:        score,
	}
}

func TestBuildModerationPrompt(t *testing.T) {
	policies := []domain.RetrievedPolicy{
		retrieved("aaa", "No threats", 0.9),
		retrieved("bbb", "No profanity", 0.7),
	}

	prompt, ids := BuildModerationPrompt("some content", policies, 0)

	assert.Equal(t, []string{"aaa", "bbb"}, ids)
	assert.Contains(t, prompt, "[aaa] No threats")
	assert.Contains(t, prompt, "[bbb] No profanity")
	assert.Contains(t, prompt, "some content")
	assert.Less(t, strings.Index(prompt, "[aaa]"), strings.Index(prompt, "[bbb]"),
		"policies must appear in relevance order")
}

func TestBuildModerationPrompt_TruncatesLowestScoredFirst(t *testing.T) {
	long := strings.Repeat("x", 400)
	policies := []domain.RetrievedPolicy{
		retrieved("top", long, 0.9),
		retrieved("mid", long, 0.6),
		retrieved("low", long, 0.3),
	}

	full, _ := BuildModerationPrompt("content", policies, 0)

	prompt, ids := BuildModerationPrompt("content", policies, len(full)-1)
	assert.Equal(t, []string{"top", "mid"}, ids, "lowest-scoring entry dropped first")
	assert.NotContains(t, prompt, "[low]")

	// Even an absurdly small budget keeps the single most relevant policy.
	_, ids = BuildModerationPrompt("content", policies, 10)
	assert.Equal(t, []string{"top"}, ids)
}

func TestBuildModerationPrompt_NoPolicies(t *testing.T) {
	prompt, ids := BuildModerationPrompt("content", nil, 1000)
	assert.Empty(t, ids)
	assert.Contains(t, prompt, "no applicable policies")
}

func TestParseModerationResponse(t *testing.T) {
	resp, err := ParseModerationResponse(`{"verdict":"approved","reason":"fine","policies_cited":["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Verdict)
	assert.Equal(t, "fine", resp.Reason)
	assert.Equal(t, []string{"a"}, resp.PoliciesCited)
}

func TestParseModerationResponse_StripsFences(t *testing.T) {
	raw := "```json\n{\"verdict\":\"flagged\",\"reason\":\"threat\",\"policies_cited\":[]}\n```"
	resp, err := ParseModerationResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "flagged", resp.Verdict)
}

func TestParseModerationResponse_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":        "the content looks fine to me",
		"missing verdict": `{"reason":"fine"}`,
		"bad verdict":     `{"verdict":"maybe","reason":"unsure"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseModerationResponse(raw)
			assert.Error(t, err)
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&APIError{Provider: "openai", Status: 429}))
	assert.True(t, IsTransient(&APIError{Provider: "openai", Status: 500}))
	assert.True(t, IsTransient(&APIError{Provider: "openai", Status: 503}))
	assert.False(t, IsTransient(&APIError{Provider: "openai", Status: 400}))
	assert.False(t, IsTransient(&APIError{Provider: "openai", Status: 401}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled), "caller cancellation is not retried")
	assert.False(t, IsTransient(nil))
}
