package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/httpx"
	"github.com/binsight/auth/pkg/jwtx"
	"github.com/binsight/auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeyPair
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	LoginService *service.LoginService
	MFAService   *service.MFAService
	UserService  *service.UserService
	AuditService *service.AuditService
	GuardService *service.GuardService
}

func NewRouter(keys *jwtx.KeyPair, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerAudit()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{LoginService: r.LoginService}

	// Both steps of the login flow take credentials from anonymous
	// callers, so they carry the strict per-IP limit.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/mfa/enroll",
		httpx.Chain(http.HandlerFunc(h.HandleEnroll),
			requireRole(r.GuardService, domain.RoleViewer, false),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Strict limit: confirmation is a TOTP guessing surface.
	r.Mux.Handle("POST /v1/mfa/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			requireRole(r.GuardService, domain.RoleViewer, false),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// Removing the second factor demands a fully satisfied session.
	r.Mux.Handle("DELETE /v1/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			requireRole(r.GuardService, domain.RoleViewer, true),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			requireRole(r.GuardService, domain.RoleAdmin, true),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/users", admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/users", admin(h.HandleList))
	r.Mux.Handle("DELETE /v1/users/{id}", admin(h.HandleDelete))

	// Self-service; any role, but the current password is re-verified.
	r.Mux.Handle("POST /v1/users/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			requireRole(r.GuardService, domain.RoleViewer, false),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	info := &UserInfoHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(info,
			httpx.AuthnMiddleware(r.keys),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{AuditService: r.AuditService}

	r.Mux.Handle("GET /v1/audit",
		httpx.Chain(h,
			requireRole(r.GuardService, domain.RoleAdmin, true),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
