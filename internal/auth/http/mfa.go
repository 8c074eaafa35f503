package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/slogx"
)

// MFAHandler covers self-service TOTP enrollment and removal.
type MFAHandler struct {
	MFAService *service.MFAService
}

type enrollResponse struct {
	Secret    string `json:"secret"`
	URI       string `json:"uri"`
	Issuer    string `json:"issuer"`
	Account   string `json:"account"`
	Algorithm string `json:"algorithm"`
	Digits    int    `json:"digits"`
	PeriodSec int    `json:"period"`
}

// HandleEnroll handles POST /v1/mfa/enroll. Re-enrolling while pending
// rolls a fresh secret; the previous one stops working immediately.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	resp, err := h.MFAService.StartEnrollment(ctx, p.UserID)
	switch {
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict,
			"mfa_already_enabled", "MFA is already enabled for this user")
		return
	case err != nil:
		log.Error("failed to start enrollment", "user_id", p.UserID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	// The secret is shown exactly once, here.
	httpx.WriteJSON(w, http.StatusOK, enrollResponse{
		Secret:    resp.Secret,
		URI:       resp.URI,
		Issuer:    resp.Issuer,
		Account:   resp.Account,
		Algorithm: resp.Algorithm,
		Digits:    resp.Digits,
		PeriodSec: resp.PeriodSec,
	})
}

type confirmRequest struct {
	Code string `json:"code"`
}

// HandleConfirm handles POST /v1/mfa/confirm, proving the authenticator
// was provisioned correctly before MFA starts gating logins.
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	err := h.MFAService.ConfirmEnrollment(ctx, p.UserID, req.Code)
	switch {
	case errors.Is(err, service.ErrMFAInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest,
			"mfa_invalid_code", "Invalid verification code")
		return
	case errors.Is(err, service.ErrEnrollmentNotPending):
		httpx.WriteError(w, http.StatusConflict,
			"enrollment_not_pending", "No enrollment in progress, start one first")
		return
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteError(w, http.StatusConflict,
			"mfa_already_enabled", "MFA is already enabled for this user")
		return
	case err != nil:
		log.Error("failed to confirm enrollment", "user_id", p.UserID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "enabled",
	})
}

// HandleDisable handles DELETE /v1/mfa. A no-op when MFA was never
// enabled; the endpoint only succeeds for fully MFA-satisfied sessions so
// a stolen password-only token cannot strip the second factor.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	if err := h.MFAService.Disable(ctx, p.UserID); err != nil {
		log.Error("failed to disable MFA", "user_id", p.UserID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "disabled",
	})
}
