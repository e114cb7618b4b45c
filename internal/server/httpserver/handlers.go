package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/logging"
	"github.com/dmitrijs2005/trackvault/internal/server/ingest"
	"github.com/dmitrijs2005/trackvault/internal/server/tracks"
	"github.com/dmitrijs2005/trackvault/internal/server/users"
)

// TokenService is the token lifecycle used by the auth routes and the guard.
type TokenService interface {
	TokenVerifier
	Login(ctx context.Context, username, password string) (*users.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*users.TokenPair, error)
}

// TrackStore is the per-user object namespace.
type TrackStore interface {
	Upload(ctx context.Context, username, fileName string, body []byte, contentType string) (string, error)
	List(ctx context.Context, username string) ([]tracks.Track, error)
	Delete(ctx context.Context, username, fileName string) error
}

// Ingester pulls a track from a remote page URL.
type Ingester interface {
	Ingest(ctx context.Context, sourceURL string) (*ingest.Buffer, error)
}

const maxJSONBody = 64 << 10

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return nil
}

// pathParam returns the route parameter key decoded exactly once. chi
// matches against RawPath when the request has one, so only then is the
// value still escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

type authHandler struct {
	tokens TokenService
	log    logging.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	pair, err := h.tokens.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.log, "login", err, "Login failed")
		return
	}

	h.log.Info(r.Context(), "user logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *authHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeMessage(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	pair, err := h.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			// a well-formed token whose user is gone is still a 401 here
			err = fmt.Errorf("%w: %w", common.ErrInvalidOrExpiredToken, err)
		}
		writeError(w, r, h.log, "refresh", err, "Refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

type tracksHandler struct {
	store          TrackStore
	ingester       Ingester
	maxUploadBytes int64
	log            logging.Logger
}

type uploadResponse struct {
	Message    string    `json:"message"`
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	Title      string    `json:"title,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (h *tracksHandler) list(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, "list", common.ErrNotAuthorized, "")
		return
	}

	list, err := h.store.List(r.Context(), username)
	if err != nil {
		writeError(w, r, h.log, "list", err, "Failed to fetch tracks")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *tracksHandler) upload(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, "upload", common.ErrNotAuthorized, "")
		return
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, hdr, err := r.FormFile("track")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.log, "upload", err, "Failed to upload file")
		return
	}

	name := filepath.Base(hdr.Filename)
	key, err := h.store.Upload(r.Context(), username, name, body, hdr.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, h.log, "upload", err, "Failed to upload file")
		return
	}

	h.log.Info(r.Context(), "track uploaded", "username", username, "key", key, "bytes", len(body))
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:    "File uploaded successfully",
		URL:        key,
		Name:       name,
		UploadedAt: time.Now().UTC(),
	})
}

type importRequest struct {
	URL string `json:"url"`
}

func (h *tracksHandler) importFromURL(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, "import", common.ErrNotAuthorized, "")
		return
	}

	var req importRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeMessage(w, http.StatusBadRequest, "YouTube URL is required")
		return
	}

	buf, err := h.ingester.Ingest(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, h.log, "import", err, "Failed to import track")
		return
	}
	defer buf.Release()

	key, err := h.store.Upload(r.Context(), username, buf.FileName, buf.Data, buf.ContentType)
	if err != nil {
		writeError(w, r, h.log, "import", err, "Failed to upload file")
		return
	}

	h.log.Info(r.Context(), "track imported", "username", username, "key", key, "bytes", len(buf.Data))
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:    "Track imported successfully",
		URL:        key,
		Name:       buf.FileName,
		Title:      buf.Title,
		UploadedAt: time.Now().UTC(),
	})
}

func (h *tracksHandler) delete(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFromContext(r.Context())
	if !ok {
		writeError(w, r, h.log, "delete", common.ErrNotAuthorized, "")
		return
	}

	name, err := pathParam(r, "filename")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	if err := h.store.Delete(r.Context(), username, name); err != nil {
		writeError(w, r, h.log, "delete", err, "Failed to delete file")
		return
	}

	h.log.Info(r.Context(), "track deleted", "username", username, "name", name)
	writeMessage(w, http.StatusOK, fmt.Sprintf("File %s deleted successfully", name))
}
