package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/slogx"
)

// LoginHandler covers the credential verification flow: password first,
// then the MFA challenge completion when a second factor is enabled.
type LoginHandler struct {
	LoginService *service.LoginService
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Role         string `json:"role"`
	MFASatisfied bool   `json:"mfa_satisfied"`
}

type mfaChallengeResponse struct {
	MFARequired bool   `json:"mfa_required"`
	MFAToken    string `json:"mfa_token"`
}

// HandleLogin handles POST /v1/auth/login.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	token, challenge, err := h.LoginService.Login(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrLockedOut):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"locked_out", "Too many failed attempts, try again later")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		// Deliberately identical for unknown users and wrong passwords.
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Invalid username or password")
		return
	case err != nil:
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	if challenge != nil {
		httpx.WriteJSON(w, http.StatusOK, mfaChallengeResponse{
			MFARequired: challenge.MFARequired,
			MFAToken:    challenge.MFAToken,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionTokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresIn:    int64(token.ExpiresIn.Seconds()),
		Role:         token.Role.String(),
		MFASatisfied: token.MFASatisfied,
	})
}

type completeMFARequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code"`
}

// HandleCompleteMFA handles POST /v1/auth/mfa, redeeming a login challenge
// with a TOTP code.
func (h *LoginHandler) HandleCompleteMFA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req completeMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "mfa_token and code are required")
		return
	}

	token, err := h.LoginService.CompleteMFA(ctx, req.MFAToken, req.Code)
	switch {
	case errors.Is(err, service.ErrLockedOut):
		httpx.WriteError(w, http.StatusTooManyRequests,
			"locked_out", "Too many failed attempts, try again later")
		return
	case errors.Is(err, service.ErrInvalidToken):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_token", "Unknown or expired MFA challenge")
		return
	case errors.Is(err, service.ErrMFAInvalidCode):
		httpx.WriteError(w, http.StatusUnauthorized,
			"mfa_invalid_code", "Invalid verification code")
		return
	case err != nil:
		log.Error("mfa completion failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionTokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		ExpiresIn:    int64(token.ExpiresIn.Seconds()),
		Role:         token.Role.String(),
		MFASatisfied: token.MFASatisfied,
	})
}
