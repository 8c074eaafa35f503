package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/pkg/httpx"
)

type principalKey struct{}

func bearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// requireRole admits requests whose session token passes the guard's
// decision table and injects the admitted principal into the context.
func requireRole(guard *service.GuardService, required domain.Role, requireMFA bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := guard.Authorize(bearerToken(r), required, requireMFA)
			switch {
			case errors.Is(err, service.ErrInsufficientRole):
				httpx.WriteError(w, http.StatusForbidden,
					"insufficient_role", "This operation requires a higher role")
				return
			case errors.Is(err, service.ErrMFARequired):
				httpx.WriteError(w, http.StatusForbidden,
					"mfa_required", "Complete multi-factor authentication first")
				return
			case err != nil:
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				httpx.WriteError(w, http.StatusUnauthorized,
					"unauthenticated", "Invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, p)
			// Mirror the identity into the shared keys so rate limiting
			// and request logs can attribute the request.
			ctx = context.WithValue(ctx, httpx.CtxKeyUserID, p.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeyUsername, p.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromCtx(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
