package domain

import "errors"

var (
	// ErrEmbeddingUnavailable means the embedding backend could not be
	// reached. Never defaulted to a zero vector: that would silently
	// corrupt similarity rankings.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch means an embedding's length does not match the
	// index's established dimension. Config error, not retryable.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDecisionUnavailable means both generation providers were
	// exhausted. The content is neither approved nor flagged; callers that
	// want a safe default must fail closed themselves.
	ErrDecisionUnavailable = errors.New("no generation provider produced a decision")

	// ErrAuditWriteFailed means the decision was made but could not be
	// logged. Reported alongside the still-valid Decision, never silently
	// dropped.
	ErrAuditWriteFailed = errors.New("audit log write failed")
)
