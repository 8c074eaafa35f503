package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/service"
	"github.com/binsight/auth/internal/auth/store/drivers/sqlite"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/jwtx"
	"github.com/binsight/auth/pkg/slogx"
	"github.com/binsight/auth/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "http-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// newTestRouter wires the full stack onto an in-memory database and seeds
// one account per role.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewEphemeralKeyPair("test-issuer")
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{Service: "auth-test", Level: "error", Format: "text"})

	lockout := service.NewLockout()
	audit := &service.AuditService{Store: st}
	tokens := &service.TokenService{Keys: keys, Issuer: "test-issuer", AccessTTL: time.Hour}
	users := &service.UserService{Store: st, Audit: audit}

	router := NewRouter(keys, "test", st, logger)
	router.LoginService = &service.LoginService{Store: st, Tokens: tokens, Audit: audit, Lockout: lockout}
	router.MFAService = &service.MFAService{Store: st, Audit: audit, Issuer: "BinSight"}
	router.UserService = users
	router.AuditService = audit
	router.GuardService = &service.GuardService{Tokens: tokens, Lockout: lockout}
	router.ApplyRoutes()

	ctx := context.Background()
	for _, seed := range []struct {
		username string
		role     domain.Role
	}{
		{"root", domain.RoleAdmin},
		{"mgr", domain.RoleManager},
		{"view", domain.RoleViewer},
	} {
		_, err := users.CreateUser(ctx, "root", seed.username, seed.username+"-pw", seed.role)
		require.NoError(t, err)
	}

	return router
}

func doJSON(t *testing.T, router *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func loginToken(t *testing.T, router *Router, username, password string) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("success", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "view",
			"password": "view-pw",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		body := decodeBody(t, rec)
		require.NotEmpty(t, body["access_token"])
		require.Equal(t, "Bearer", body["token_type"])
		require.Equal(t, "viewer", body["role"])
		require.Equal(t, true, body["mfa_satisfied"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "view",
			"password": "nope",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "invalid_credentials", decodeBody(t, rec)["error"])
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
			"username": "view",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMFAFlowOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router, "mgr", "mgr-pw")

	// Enroll.
	rec := doJSON(t, router, http.MethodPost, "/v1/mfa/enroll", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	secret, _ := decodeBody(t, rec)["secret"].(string)
	require.NotEmpty(t, secret)

	// Confirm with a live code.
	code, err := totpx.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = doJSON(t, router, http.MethodPost, "/v1/mfa/confirm", token, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	// Password alone now yields a challenge instead of a session.
	rec = doJSON(t, router, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username": "mgr",
		"password": "mgr-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["mfa_required"])
	mfaToken, _ := body["mfa_token"].(string)
	require.NotEmpty(t, mfaToken)
	require.Empty(t, body["access_token"])

	// Redeem the challenge.
	code, err = totpx.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	rec = doJSON(t, router, http.MethodPost, "/v1/auth/mfa", "", map[string]string{
		"mfa_token": mfaToken,
		"code":      code,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	require.NotEmpty(t, body["access_token"])
	require.Equal(t, true, body["mfa_satisfied"])

	// Wrong code on a fresh challenge is a 401.
	rec = doJSON(t, router, http.MethodPost, "/v1/auth/mfa", "", map[string]string{
		"mfa_token": "bogus",
		"code":      "000000",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGates(t *testing.T) {
	router := newTestRouter(t)
	viewToken := loginToken(t, router, "view", "view-pw")
	adminToken := loginToken(t, router, "root", "root-pw")

	t.Run("no token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/users", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/users", "not-a-jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("viewer refused on admin surface", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/users", viewToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "insufficient_role", decodeBody(t, rec)["error"])
	})

	t.Run("admin admitted", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/users", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUserAdminEndpoints(t *testing.T) {
	router := newTestRouter(t)
	adminToken := loginToken(t, router, "root", "root-pw")

	// Create.
	rec := doJSON(t, router, http.MethodPost, "/v1/users", adminToken, map[string]string{
		"username": "newbie",
		"password": "newbie-pw",
		"role":     "viewer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, "disabled", created["mfa_state"])

	t.Run("duplicate username", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/users", adminToken, map[string]string{
			"username": "newbie",
			"password": "other-pw",
			"role":     "viewer",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad role", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/v1/users", adminToken, map[string]string{
			"username": "other",
			"password": "pw",
			"role":     "superuser",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	// List includes the new account.
	rec = doJSON(t, router, http.MethodGet, "/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users, _ := decodeBody(t, rec)["users"].([]any)
	require.Len(t, users, 4)

	// Delete it.
	rec = doJSON(t, router, http.MethodDelete, "/v1/users/"+id, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	t.Run("delete again", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/v1/users/"+id, adminToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestChangePasswordEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router, "view", "view-pw")

	rec := doJSON(t, router, http.MethodPost, "/v1/users/password", token, map[string]string{
		"current_password": "wrong",
		"new_password":     "next-pw",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/users/password", token, map[string]string{
		"current_password": "view-pw",
		"new_password":     "next-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	loginToken(t, router, "view", "next-pw")
}

func TestUserInfoEndpoint(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router, "mgr", "mgr-pw")

	rec := doJSON(t, router, http.MethodGet, "/v1/userinfo", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "mgr", body["username"])
	require.Equal(t, "manager", body["role"])
	require.Equal(t, "disabled", body["mfa_state"])

	t.Run("unauthenticated", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/userinfo", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuditEndpoint(t *testing.T) {
	router := newTestRouter(t)
	adminToken := loginToken(t, router, "root", "root-pw")

	rec := doJSON(t, router, http.MethodGet, "/v1/audit", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events, _ := decodeBody(t, rec)["events"].([]any)
	require.NotEmpty(t, events, "seeding and logins should have left a trail")

	t.Run("filter by actor", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/audit?actor=root&limit=5", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/v1/audit?limit=abc", adminToken, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("viewer refused", func(t *testing.T) {
		viewToken := loginToken(t, router, "view", "view-pw")
		rec := doJSON(t, router, http.MethodGet, "/v1/audit", viewToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])

	rec = doJSON(t, router, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "ok", body["status"])
}
