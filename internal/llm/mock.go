package llm

import (
	"context"
)

// MockClient is a configurable generation client for testing.
// Set Responses/Errors to script successive Generate calls; when the
// scripts run out, the last entry repeats.
type MockClient struct {
	Responses []string
	Errors    []error

	// Call tracking for assertions
	GenerateCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		Responses: []string{`{"verdict":"approved","reason":"mock decision","policies_cited":[]}`},
	}
}

func (c *MockClient) Generate(_ context.Context, prompt string) (string, error) {
	n := len(c.GenerateCalls)
	c.GenerateCalls = append(c.GenerateCalls, prompt)

	if len(c.Errors) > 0 {
		i := n
		if i >= len(c.Errors) {
			i = len(c.Errors) - 1
		}
		if err := c.Errors[i]; err != nil {
			return "", err
		}
	}

	if len(c.Responses) == 0 {
		return "", nil
	}
	i := n
	if i >= len(c.Responses) {
		i = len(c.Responses) - 1
	}
	return c.Responses[i], nil
}
