package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/docchat/backend/internal/auth"
	"github.com/docchat/backend/internal/config"
	"github.com/docchat/backend/internal/document"
	"github.com/docchat/backend/internal/document/qa"
	"github.com/docchat/backend/internal/document/service"
	"github.com/docchat/backend/internal/sessions"
	"github.com/docchat/backend/internal/tokens"
	"github.com/docchat/backend/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// textParser returns the uploaded bytes as the document text.
type textParser struct{}

func (textParser) Parse(ctx context.Context, path string, meta document.Metadata) ([]document.ParsedDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return []document.ParsedDocument{{ID: "doc-" + meta.FileName, Text: string(b), Metadata: meta}}, nil
}

type testServer struct {
	router *gin.Engine
	redis  *mr.Miniredis
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
		JWT:    config.JWTConfig{Secret: "test-secret", Algorithm: "HS256", AccessTokenTTL: 30 * time.Minute},
		Upload: config.UploadConfig{MaxBytes: 1024, TempDir: t.TempDir()},
	}
	issuer, err := tokens.NewIssuer(cfg.JWT)
	require.NoError(t, err)

	us := users.NewService(users.NewMemoryStore())
	authSvc, err := auth.NewService(us, auth.BcryptHasher{Cost: 4}, issuer, sessions.NewBlacklist(rdb))
	require.NoError(t, err)

	docs := service.New(service.Options{
		Users:    us,
		Parser:   textParser{},
		Engine:   &qa.IndexEngine{Embedder: qa.HashEmbedder{}, ChunkSize: 16, TopK: 1},
		MaxBytes: cfg.Upload.MaxBytes,
		TempDir:  cfg.Upload.TempDir,
	})

	return &testServer{
		router: NewRouter(Dependencies{
			Config:   cfg,
			Auth:     authSvc,
			Docs:     docs,
			Store:    us,
			Redis:    rdb,
			Gatherer: prometheus.NewRegistry(),
		}),
		redis: s,
		cfg:   cfg,
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) postJSON(t *testing.T, path, token string, v any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return ts.do(t, http.MethodPost, path, token, b, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signupAndLogin returns a bearer token for a fresh account.
func (ts *testServer) signupAndLogin(t *testing.T, email string) string {
	t.Helper()
	creds := Credentials{Email: email, Password: "pw-" + email}
	w := ts.postJSON(t, "/auth/signup", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.postJSON(t, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON(t, "/auth/signup", "", Credentials{Email: "a@x.io", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "a@x.io", body["email"])
	assert.EqualValues(t, 1, body["id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")

	w = ts.postJSON(t, "/auth/signup", "", Credentials{Email: "a@x.io", Password: "other"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already registered", decode(t, w)["detail"])
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)
	cases := map[string]string{
		"missing password": `{"email":"a@x.io"}`,
		"missing email":    `{"password":"pw"}`,
		"bad email":        `{"email":"not-an-email","password":"pw"}`,
		"not json":         `email=a@x.io`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/auth/signup", "", []byte(body), "application/json")
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.NotEmpty(t, decode(t, w)["detail"])
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.postJSON(t, "/auth/signup", "", Credentials{Email: "a@x.io", Password: "pw"}).Code)

	w := ts.postJSON(t, "/auth/login", "", Credentials{Email: "a@x.io", Password: "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["token"])

	wrongPw := ts.postJSON(t, "/auth/login", "", Credentials{Email: "a@x.io", Password: "nope"})
	unknown := ts.postJSON(t, "/auth/login", "", Credentials{Email: "b@x.io", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())

	w = ts.do(t, http.MethodPost, "/auth/login", "", []byte(`{"email":"a@x.io"}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	ts := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/chat"},
		{http.MethodGet, "/document"},
		{http.MethodPut, "/document"},
		{http.MethodPost, "/chat/upload"},
		{http.MethodPost, "/chat/ask"},
		{http.MethodDelete, "/chat/delete"},
		{http.MethodPost, "/auth/logout"},
	}
	for _, r := range routes {
		for _, token := range []string{"", "garbage"} {
			w := ts.do(t, r.method, r.path, token, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, auth.CredentialsError, decode(t, w)["detail"])
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signupAndLogin(t, "a@x.io")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/chat", token, nil, "").Code)

	w := ts.do(t, http.MethodPost, "/auth/logout", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, ts.redis.Keys(), 1)
	assert.True(t, strings.HasPrefix(ts.redis.Keys()[0], "blacklist:access:"))

	w = ts.do(t, http.MethodGet, "/chat", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", w.Body.String())

	w = ts.do(t, http.MethodGet, "/ready", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, map[string]any{"store": true, "redis": true}, body["deps"])

	ts.redis.Close()
	w = ts.do(t, http.MethodGet, "/ready", "", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode(t, w)["status"])

	w = ts.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
