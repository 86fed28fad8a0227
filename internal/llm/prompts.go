package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/policygate/policygate/internal/domain"
)

const moderationPrompt = `You are a content compliance reviewer. Evaluate the submitted content against the policies below and decide whether it should be approved or flagged.

Policies (each tagged with its id):
%s
Submitted content:
%s

Respond ONLY with a JSON object. No markdown, no explanation. Example:
{"verdict":"approved","reason":"Critical but non-threatening opinion","policies_cited":["a1b2c3"]}

Rules:
- "verdict" must be exactly "approved" or "flagged"
- "reason" is one short sentence
- "policies_cited" lists the ids of the policies your decision rests on; use [] if none apply`

// BuildModerationPrompt renders the augmented prompt for one content item.
// Policies are assumed ordered by descending relevance; when the rendered
// prompt would exceed charBudget, the lowest-scoring entries are dropped
// first. Returns the prompt and the ids of the policies that made it in.
func BuildModerationPrompt(content string, policies []domain.RetrievedPolicy, charBudget int) (string, []string) {
	included := len(policies)
	for included > 0 {
		prompt, ids := renderModerationPrompt(content, policies[:included])
		if charBudget <= 0 || len(prompt) <= charBudget || included == 1 {
			return prompt, ids
		}
		included--
	}
	return renderModerationPrompt(content, nil)
}

func renderModerationPrompt(content string, policies []domain.RetrievedPolicy) (string, []string) {
	var sb strings.Builder
	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		fmt.Fprintf(&sb, "[%s] %s\n", p.ID, p.Text)
		ids = append(ids, p.ID)
	}
	if len(policies) == 0 {
		sb.WriteString("(no applicable policies found)\n")
	}
	return fmt.Sprintf(moderationPrompt, sb.String(), content), ids
}

// ModerationResponse is the structured output expected from a provider.
type ModerationResponse struct {
	Verdict       string   `json:"verdict"`
	Reason        string   `json:"reason"`
	PoliciesCited []string `json:"policies_cited"`
}

// ParseModerationResponse parses a raw completion into a validated
// response. A missing verdict or one outside {approved, flagged} is a
// validation failure, which the decision engine treats the same as a
// provider failure.
func ParseModerationResponse(raw string) (*ModerationResponse, error) {
	// Strip markdown fences if present
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var resp ModerationResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("parse moderation response: %w (raw: %s)", err, raw)
	}

	if !domain.ValidVerdict(resp.Verdict) {
		return nil, fmt.Errorf("invalid verdict %q in moderation response", resp.Verdict)
	}

	return &resp, nil
}
