package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/trackvault/internal/common"
)

// Track mirrors one entry of GET /api/tracks.
type Track struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

// UploadResult is the reply to an upload or an import.
type UploadResult struct {
	Message    string    `json:"message"`
	Key        string    `json:"url"`
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type tokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type messageBody struct {
	Message string `json:"message"`
}

type APIClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// New returns a client for the API rooted at baseURL. A nil httpClient
// means http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{baseURL: baseURL, http: httpClient}
}

func (c *APIClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *APIClient) setTokens(p tokenPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = p.AccessToken
	c.refreshToken = p.RefreshToken
}

// LoggedIn reports whether a token pair is held.
func (c *APIClient) LoggedIn() bool {
	access, _ := c.tokens()
	return access != ""
}

// Logout forgets the token pair. The server keeps no session to end.
func (c *APIClient) Logout() {
	c.setTokens(tokenPair{})
}

// Ping checks that the API answers at all.
func (c *APIClient) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/", "", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (c *APIClient) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}

	var pair tokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", "", body, "application/json", http.StatusOK, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

// Refresh swaps the stored refresh token for a new pair.
func (c *APIClient) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}

	body, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return err
	}

	var pair tokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/refresh", "", body, "application/json", http.StatusOK, &pair); err != nil {
		return err
	}
	c.setTokens(pair)
	return nil
}

func (c *APIClient) List(ctx context.Context) ([]Track, error) {
	var out []Track
	if err := c.authorized(ctx, http.MethodGet, "/api/tracks", nil, "", http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends data as the multipart field "track" under fileName.
func (c *APIClient) Upload(ctx context.Context, fileName string, data io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("track", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out UploadResult
	if err := c.authorized(ctx, http.MethodPost, "/api/tracks/upload", buf.Bytes(), mw.FormDataContentType(), http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportYouTube asks the server to fetch, convert and store the audio
// behind a YouTube page URL.
func (c *APIClient) ImportYouTube(ctx context.Context, pageURL string) (*UploadResult, error) {
	body, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}

	var out UploadResult
	if err := c.authorized(ctx, http.MethodPost, "/api/tracks/youtube", body, "application/json", http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes fileName from the caller's namespace.
func (c *APIClient) Delete(ctx context.Context, fileName string) error {
	return c.authorized(ctx, http.MethodDelete, "/api/tracks/"+url.PathEscape(fileName), nil, "", http.StatusOK, nil)
}

// authorized runs a Bearer call, refreshing the pair and retrying once on 401.
func (c *APIClient) authorized(ctx context.Context, method, path string, body []byte, contentType string, want int, out any) error {
	access, refresh := c.tokens()
	if access == "" {
		return ErrNotLoggedIn
	}

	err := c.doJSON(ctx, method, path, access, body, contentType, want, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || refresh == "" {
		return err
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		c.Logout()
		return fmt.Errorf("%w: %w", ErrUnauthorized, rerr)
	}

	access, _ = c.tokens()
	err = c.doJSON(ctx, method, path, access, body, contentType, want, out)
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func (c *APIClient) doJSON(ctx context.Context, method, path, token string, body []byte, contentType string, want int, out any) error {
	resp, err := c.send(ctx, method, path, token, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != want {
		var m messageBody
		_ = json.Unmarshal(data, &m)
		return &APIError{Status: resp.StatusCode, Message: m.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *APIClient) send(ctx context.Context, method, path, token string, body []byte, contentType string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp, nil
}
