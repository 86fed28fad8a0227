package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockDimension is the vector size produced by MockClient.
const MockDimension = 64

// MockClient is a deterministic, offline embedding client. Each word is
// hashed into a bucket of a fixed-size vector, which is then L2-normalized,
// so texts sharing vocabulary get genuinely similar vectors. Good enough
// for tests and local runs without an embedding backend.
type MockClient struct {
	EmbedError error

	// Call tracking for assertions
	EmbedCalls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	c.EmbedCalls = append(c.EmbedCalls, text)
	if c.EmbedError != nil {
		return nil, c.EmbedError
	}

	vec := make([]float32, MockDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%MockDimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}
