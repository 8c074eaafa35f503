package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/slogx"
)

// UsersHandler covers admin account management plus self-service password
// changes.
type UsersHandler struct {
	UserService *service.UserService
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	MFAState  string    `json:"mfa_state"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role.String(),
		MFAState:  string(u.MFAState()),
		CreatedAt: u.CreatedAt,
	}
}

// HandleCreate handles POST /v1/users (admin).
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role must be admin, manager or viewer")
		return
	}

	u, err := h.UserService.CreateUser(ctx, p.Username, req.Username, req.Password, role)
	switch {
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "username_taken", "Username is already in use")
		return
	case err != nil:
		log.Error("failed to create user", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleList handles GET /v1/users (admin).
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.UserService.ListUsers(ctx)
	if err != nil {
		log.Error("failed to list users", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

// HandleDelete handles DELETE /v1/users/{id} (admin).
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}
	if id == p.UserID {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "cannot delete your own account")
		return
	}

	err := h.UserService.DeleteUser(ctx, p.Username, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "No such user")
		return
	case err != nil:
		log.Error("failed to delete user", "user_id", id, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword handles POST /v1/users/password (self-service).
// The current password is re-verified so a hijacked session alone cannot
// rotate the credential.
func (h *UsersHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	p, ok := principalFromCtx(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "Missing session")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "new_password is required")
		return
	}

	err := h.UserService.ChangePassword(ctx, p.UserID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized,
			"invalid_credentials", "Current password is incorrect")
		return
	case err != nil:
		log.Error("failed to change password", "user_id", p.UserID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "password_changed",
	})
}
