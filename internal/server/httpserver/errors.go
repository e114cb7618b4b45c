package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/logging"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// classify maps an error kind to a status and the message shown to the
// client. Storage failures get the caller's generic text; ingestion failures
// carry their cause.
func classify(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, common.ErrMissingCredential):
		return http.StatusUnauthorized, "Access Denied. No token provided."
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid Token"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return http.StatusUnauthorized, "Invalid or expired refresh token"
	case errors.Is(err, common.ErrNotAuthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidSourceURL):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrSourceResolution),
		errors.Is(err, common.ErrTransfer),
		errors.Is(err, common.ErrTranscode):
		return http.StatusInternalServerError, fallback + ": " + err.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}

// writeError logs err once with the request's identity and writes the
// mapped response.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, op string, err error, fallback string) {
	status, msg := classify(err, fallback)

	username, _ := UsernameFromContext(r.Context())
	args := []any{"op", op, "status", status, "error", err.Error()}
	if username != "" {
		args = append(args, "username", username)
	}

	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", args...)
	} else {
		log.Warn(r.Context(), "request rejected", args...)
	}

	writeMessage(w, status, msg)
}
