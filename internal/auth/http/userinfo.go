package http

import (
	"net/http"

	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/slogx"
)

// UserInfoHandler handles GET /v1/userinfo: who the presented token says
// you are, straight from the store so MFA state is current.
type UserInfoHandler struct {
	UserService *service.UserService
}

type userInfoResponse struct {
	Sub          string `json:"sub"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	MFAState     string `json:"mfa_state"`
	MFASatisfied bool   `json:"mfa_satisfied"`
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	u, err := h.UserService.GetUser(ctx, claims.Subject)
	if err != nil {
		log.Warn("failed to load user", "user_id", claims.Subject, "err", err)
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "Unknown subject")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userInfoResponse{
		Sub:          u.ID,
		Username:     u.Username,
		Role:         u.Role.String(),
		MFAState:     string(u.MFAState()),
		MFASatisfied: claims.MFASatisfied,
	})
}
