package handlers

import (
	"net/http"
	"strconv"

	"github.com/policygate/policygate/internal/domain"
	"github.com/policygate/policygate/internal/service"
)

type AuditHandler struct {
	auditor *service.AuditLogger
}

func NewAuditHandler(auditor *service.AuditLogger) *AuditHandler {
	return &AuditHandler{auditor: auditor}
}

type auditListResponse struct {
	Records []domain.AuditRecord `json:"records"`
}

// List returns audit records in insertion order for compliance review.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.auditor.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit records")
		return
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}

	writeJSON(w, http.StatusOK, auditListResponse{Records: records})
}
