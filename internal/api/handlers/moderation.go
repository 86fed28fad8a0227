package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/service"
)

type ModerationHandler struct {
	pipeline *service.ModerationPipeline
}

func NewModerationHandler(pipeline *service.ModerationPipeline) *ModerationHandler {
	return &ModerationHandler{pipeline: pipeline}
}

type moderateRequest struct {
	Content string `json:"content"`
}

type moderateResponse struct {
	*domain.Decision
	AuditWarning string `json:"audit_warning,omitempty"`
}

// Moderate runs the pipeline for one content item. Stage failures map to
// distinct status codes and error strings so callers can tell retrieval
// failures from decision failures; an audit failure still returns the
// decision, with a warning attached.
func (h *ModerationHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	decision, err := h.pipeline.Moderate(r.Context(), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContentEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrAuditWriteFailed):
			// Decision stands; surface the logging gap instead of
			// discarding the verdict.
			writeJSON(w, http.StatusOK, moderateResponse{
				Decision:     decision,
				AuditWarning: "decision was not recorded in the audit log",
			})
		case errors.Is(err, domain.ErrEmbeddingUnavailable):
			writeError(w, http.StatusServiceUnavailable, "embedding backend unavailable")
		case errors.Is(err, domain.ErrDecisionUnavailable):
			writeError(w, http.StatusServiceUnavailable, "no generation provider produced a decision")
		default:
			writeError(w, http.StatusInternalServerError, "moderation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, moderateResponse{Decision: decision})
}
