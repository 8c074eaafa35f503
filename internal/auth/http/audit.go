package http

import (
	"net/http"
	"strconv"

	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/slogx"
)

// AuditHandler handles GET /v1/audit (admin): the security event trail,
// newest first, optionally filtered by actor.
type AuditHandler struct {
	AuditService *service.AuditService
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	actor := r.URL.Query().Get("actor")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := h.AuditService.List(ctx, actor, limit)
	if err != nil {
		log.Error("failed to list audit events", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
