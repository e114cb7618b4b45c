package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/trackvault/internal/server/httpserver"
	"github.com/dmitrijs2005/trackvault/internal/server/tracks"
	"github.com/dmitrijs2005/trackvault/internal/server/tracks/trackstest"
	"github.com/dmitrijs2005/trackvault/internal/server/users"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("wonderland"), bcrypt.MinCost)
	require.NoError(t, err)
	reg, err := users.NewRegistry([]users.User{{UserName: "alice", PasswordHash: string(h)}})
	require.NoError(t, err)

	store := trackstest.NewStore()
	ts := httptest.NewServer(httpserver.NewRouter(httpserver.Deps{
		Tokens: users.NewService(reg, users.Options{
			AccessSecret:  []byte("a"),
			RefreshSecret: []byte("r"),
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
		}),
		Tracks: tracks.NewService(store, store, tracks.Options{Bucket: "music"}),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAPIClient_AgainstServer(t *testing.T) {
	ts := newServer(t)
	c := New(ts.URL, ts.Client())
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_, err := c.List(ctx)
	require.ErrorIs(t, err, ErrNotLoggedIn)

	err = c.Login(ctx, "alice", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, c.LoggedIn())

	require.NoError(t, c.Login(ctx, "alice", "wonderland"))
	assert.True(t, c.LoggedIn())

	res, err := c.Upload(ctx, "first song.mp3", strings.NewReader("ID3"))
	require.NoError(t, err)
	assert.Equal(t, "File uploaded successfully", res.Message)
	assert.True(t, strings.HasPrefix(res.Key, "alice/"))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Key, list[0].Key)
	assert.Equal(t, int64(3), list[0].Size)

	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.Delete(ctx, list[0].Name))

	list, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = c.Delete(ctx, "a/b")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	c.Logout()
	assert.False(t, c.LoggedIn())
	require.ErrorIs(t, c.Refresh(ctx), ErrNotLoggedIn)
}

// tokenServer accepts only the access token it handed out most recently.
type tokenServer struct {
	current      atomic.Value
	refreshes    atomic.Int32
	refreshFails bool
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeMsg := func(status int, msg string) {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
	}

	switch r.URL.Path {
	case "/api/auth/refresh":
		n := s.refreshes.Add(1)
		if s.refreshFails {
			writeMsg(http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		tok := "access-" + string(rune('0'+n))
		s.current.Store(tok)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": tok, "refreshToken": "refresh-next"})
	case "/api/tracks/youtube":
		if r.Header.Get("Authorization") != "Bearer "+s.current.Load().(string) {
			writeMsg(http.StatusUnauthorized, "Token expired")
			return
		}
		b, _ := io.ReadAll(r.Body)
		var req map[string]string
		_ = json.Unmarshal(b, &req)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Track imported successfully", "url": "alice/1-x.mp3", "name": "x.mp3", "title": req["url"]})
	default:
		writeMsg(http.StatusNotFound, "not found")
	}
}

func TestAPIClient_RefreshesOnceOn401(t *testing.T) {
	srv := &tokenServer{}
	srv.current.Store("fresh")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := New(ts.URL, ts.Client())
	c.setTokens(tokenPair{AccessToken: "stale", RefreshToken: "refresh-0"})

	res, err := c.ImportYouTube(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, "x.mp3", res.Name)
	assert.Equal(t, "https://youtu.be/abc", res.Title)
	assert.Equal(t, int32(1), srv.refreshes.Load())

	access, refresh := c.tokens()
	assert.Equal(t, "access-1", access)
	assert.Equal(t, "refresh-next", refresh)
}

func TestAPIClient_RefreshFailureLogsOut(t *testing.T) {
	srv := &tokenServer{refreshFails: true}
	srv.current.Store("fresh")
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := New(ts.URL, ts.Client())
	c.setTokens(tokenPair{AccessToken: "stale", RefreshToken: "refresh-0"})

	_, err := c.ImportYouTube(context.Background(), "https://youtu.be/abc")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, c.LoggedIn())
	assert.Equal(t, int32(1), srv.refreshes.Load())
}

func TestAPIClient_Unavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, nil)
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	err = c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "server returned 500", (&APIError{Status: 500}).Error())
	assert.Equal(t, "server returned 400: Invalid Token", (&APIError{Status: 400, Message: "Invalid Token"}).Error())
	assert.False(t, errors.Is(&APIError{Status: 401}, ErrUnauthorized))
}
