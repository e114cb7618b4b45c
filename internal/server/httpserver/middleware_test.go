package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/logging"
)

type verifierFunc func(ctx context.Context, token string) (string, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (string, error) { return f(ctx, token) }

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m.Message
}

func TestAccessTokenMiddleware(t *testing.T) {
	verifier := verifierFunc(func(_ context.Context, token string) (string, error) {
		switch token {
		case "good":
			return "alice", nil
		case "old":
			return "", common.ErrTokenExpired
		default:
			return "", common.ErrInvalidToken
		}
	})

	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser, _ = UsernameFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := accessTokenMiddleware(verifier, logging.Nop{})(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
		wantUser   string
	}{
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized, wantMsg: "Access Denied. No token provided."},
		{name: "basic scheme", header: "Basic YWxpY2U6cHc=", wantStatus: http.StatusUnauthorized, wantMsg: "Access Denied. No token provided."},
		{name: "bearer without token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantMsg: "Access Denied. No token provided."},
		{name: "tampered token", header: "Bearer forged", wantStatus: http.StatusBadRequest, wantMsg: "Invalid Token"},
		{name: "expired token", header: "Bearer old", wantStatus: http.StatusUnauthorized, wantMsg: "Token expired"},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusNoContent, wantUser: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeMessage(t, rec))
			}
			assert.Equal(t, tt.wantUser, seenUser)
		})
	}
}

func TestUsernameFromContext_Empty(t *testing.T) {
	_, ok := UsernameFromContext(context.Background())
	assert.False(t, ok)

	_, ok = UsernameFromContext(withUsername(context.Background(), ""))
	assert.False(t, ok)
}

func TestIPLimiter(t *testing.T) {
	l := newIPLimiter(60, 2)
	now := time.Now()

	assert.True(t, l.allow("1.1.1.1", now))
	assert.True(t, l.allow("1.1.1.1", now))
	assert.False(t, l.allow("1.1.1.1", now), "burst exhausted")
	assert.True(t, l.allow("2.2.2.2", now), "other clients unaffected")

	assert.True(t, l.allow("1.1.1.1", now.Add(1100*time.Millisecond)), "one token per second refills")

	l.allow("3.3.3.3", now.Add(time.Hour))
	l.mu.Lock()
	_, stale := l.clients["2.2.2.2"]
	l.mu.Unlock()
	assert.False(t, stale, "idle clients are swept")
}

func TestIPLimiter_Middleware(t *testing.T) {
	l := newIPLimiter(1, 1)
	h := l.middleware(logging.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}

func TestCORS(t *testing.T) {
	h := corsHandler()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	pre := httptest.NewRequest(http.MethodOptions, "/api/tracks", nil)
	pre.Header.Set("Origin", "https://player.example")
	pre.Header.Set("Access-Control-Request-Method", "DELETE")
	pre.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, pre)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))

	get := httptest.NewRequest(http.MethodGet, "/", nil)
	get.Header.Set("Origin", "https://player.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPanicRecovery(t *testing.T) {
	h := panicRecovery(logging.Nop{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeMessage(t, rec))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{common.ErrMissingCredential, http.StatusUnauthorized},
		{common.ErrTokenExpired, http.StatusUnauthorized},
		{common.ErrInvalidToken, http.StatusBadRequest},
		{common.ErrInvalidCredentials, http.StatusUnauthorized},
		{common.ErrInvalidOrExpiredToken, http.StatusUnauthorized},
		{common.ErrNotAuthorized, http.StatusUnauthorized},
		{common.ErrValidation, http.StatusBadRequest},
		{common.ErrInvalidSourceURL, http.StatusBadRequest},
		{common.ErrStorageRead, http.StatusInternalServerError},
		{common.ErrStorageWrite, http.StatusInternalServerError},
		{common.ErrTranscode, http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := classify(tt.err, "fallback")
		assert.Equal(t, tt.status, status, tt.err.Error())
	}

	_, msg := classify(common.ErrStorageRead, "Failed to fetch tracks")
	assert.Equal(t, "Failed to fetch tracks", msg, "storage details stay server-side")

	_, msg = classify(common.ErrTranscode, "Failed to import track")
	assert.Contains(t, msg, "transcode failed", "ingest cause is surfaced")
}
