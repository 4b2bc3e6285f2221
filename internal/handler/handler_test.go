package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-server/internal/auth"
	"cortex-server/internal/hub"
	"cortex-server/internal/middleware"
	"cortex-server/internal/store"
	"cortex-server/internal/user"
)

type fixture struct {
	router *gin.Engine
	tokens auth.TokenConfig
	hub    *hub.Hub
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	h := hub.New(hub.Options{Verifier: auth.Verifier{Config: tokens}})
	svc := user.NewService(store.NewMemory(), h, nil)

	users := &UserHandler{Users: svc}
	login := &AuthHandler{Users: svc, TokenConfig: tokens}
	stats := &HubHandler{Hub: h}

	r := gin.New()
	r.POST("/users/", users.Create)
	r.GET("/users/me", middleware.RequireAuth(tokens), users.Me)
	r.GET("/users/:id", middleware.RequireAuth(tokens), users.Get)
	r.POST("/v1/auth/login", login.Login)
	r.GET("/v1/hub/stats", stats.Stats)
	return fixture{router: r, tokens: tokens, hub: h}
}

func (f fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
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
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

var ada = map[string]any{
	"email":           "ada@example.com",
	"name":            "Ada",
	"password":        "s3cret",
	"phoneNumber":     "+1 555 0100",
	"role_identifier": "member",
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/users/", ada, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "general", body["idSector"])
	assert.Equal(t, "member", body["idRole"])
	assert.Equal(t, "+1 555 0100", body["phoneNumber"])
	assert.Nil(t, body["description"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "PasswordHash")
}

func TestCreateUser_Errors(t *testing.T) {
	f := newFixture(t)

	unknownRole := map[string]any{"email": "x@example.com", "name": "X", "password": "p", "role_identifier": "ghost"}
	w := f.do(t, http.MethodPost, "/users/", unknownRole, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Role identifier not found.", decodeBody(t, w)["message"])

	badEmail := map[string]any{"email": "nope", "name": "X", "password": "p", "role_identifier": "member"}
	w = f.do(t, http.MethodPost, "/users/", badEmail, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndGetUser(t *testing.T) {
	f := newFixture(t)
	created := decodeBody(t, f.do(t, http.MethodPost, "/users/", ada, ""))
	id := created["id"].(string)

	w := f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "ada@example.com", "password": "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeBody(t, w)
	assert.Equal(t, id, login["userId"])
	token := login["token"].(string)

	w = f.do(t, http.MethodGet, "/users/"+id, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/users/"+id, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", decodeBody(t, w)["email"])

	w = f.do(t, http.MethodGet, "/users/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decodeBody(t, w)["id"])

	w = f.do(t, http.MethodGet, "/users/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found.", decodeBody(t, w)["message"])
}

func TestHubStats(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/hub/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"sessions": float64(0), "authenticated": float64(0), "rooms": float64(0)}, decodeBody(t, w))
}

func TestOriginPolicy(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	p := NewOriginPolicy([]string{" HTTPS://App.Example.com ", "not a url", ""}, nil)
	assert.True(t, p.Allowed(req("https://app.example.com")))
	assert.False(t, p.Allowed(req("https://evil.example.com")))
	assert.False(t, p.Allowed(req("")))
	assert.False(t, p.Check(req("http://app.example.com")))

	all := NewOriginPolicy([]string{"*"}, nil)
	assert.True(t, all.Allowed(req("")))
	assert.True(t, all.Allowed(req("https://anything.test")))
}
