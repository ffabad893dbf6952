package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"authservice/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(f.svc)
	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterPublicRoutes(v1)
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(f.tokens))
	h.RegisterProtectedRoutes(protected)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestHandler_ExtraHandlersDoNotLeakBetweenRoutes(t *testing.T) {
	f := newFixture(t)
	gin.SetMode(gin.TestMode)

	extra := make([]gin.HandlerFunc, 1, 4)
	extra[0] = func(c *gin.Context) { c.Header("X-Limited", "1") }

	r := gin.New()
	NewHandler(f.svc).RegisterPublicRoutes(r.Group("/api/v1"), extra...)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{})
	assert.Equal(t, "1", w.Header().Get("X-Limited"))
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "email")

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{})
	assert.Equal(t, "1", w.Header().Get("X-Limited"))
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotContains(t, env.Error.Details, "email")

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{})
	assert.Empty(t, w.Header().Get("X-Limited"))
}

func TestHandler_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "a",
		"email":    "not-an-email",
		"password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "username", env.Error.Details["username"])
	assert.Equal(t, "email", env.Error.Details["email"])
	assert.Equal(t, "password", env.Error.Details["password"])
}

func TestHandler_RegisterLoginMe(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "USER_EXISTS", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "Wr0ng!pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		AccessToken  string     `json:"access_token"`
		RefreshToken string     `json:"refresh_token"`
		User         UserPublic `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, "alice", login.User.Username)

	w, env = doJSON(t, r, http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "read_self")

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_RefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)
	f.register(t, "alice", "alice@example.com")
	pair := f.login(t, "alice@example.com")

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	var next TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &next))
	assert.NotEmpty(t, next.RefreshToken)

	w, env = doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", env.Error.Code)

	for i := 0; i < 2; i++ {
		w, _ = doJSON(t, r, http.MethodPost, "/api/v1/users/me/logout", next.AccessToken, gin.H{"refresh_token": next.RefreshToken})
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": next.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Sessions(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)
	f.register(t, "alice", "alice@example.com")
	f.register(t, "bob", "bob@example.com")
	a1 := f.login(t, "alice@example.com")
	a2 := f.login(t, "alice@example.com")
	b := f.login(t, "bob@example.com")

	w, env := doJSON(t, r, http.MethodGet, "/api/v1/users/me/sessions", a1.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []SessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Sessions, 2)

	w, env = doJSON(t, r, http.MethodDelete, "/api/v1/users/me/sessions/"+b.SessionID, a1.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)

	w, _ = doJSON(t, r, http.MethodDelete, "/api/v1/users/me/sessions/"+a2.SessionID, a1.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, r, http.MethodDelete, "/api/v1/users/me/sessions", a1.AccessToken, gin.H{"current_refresh_token": a1.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revoked":0}`, string(env.Data))
}

func TestHandler_ChangePassword(t *testing.T) {
	f := newFixture(t)
	r := newRouter(t, f)
	f.register(t, "alice", "alice@example.com")
	pair := f.login(t, "alice@example.com")

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/users/me/change-password", pair.AccessToken, gin.H{
		"current_password": "Wr0ng!pass",
		"new_password":     "N3w!password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/users/me/change-password", pair.AccessToken, gin.H{
		"current_password": testPassword,
		"new_password":     "N3w!password",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
