// Package common defines shared constants and sentinel errors used across
// client and server layers of trackvault. Callers should use errors.Is to
// match these values; services wrap them together with the underlying cause.
package common

import "errors"

var (
	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Request validation errors (missing or malformed fields).
	ErrValidation = errors.New("validation error")

	// Auth errors.
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	ErrMissingCredential     = errors.New("access denied, no token provided")
	ErrNotAuthorized         = errors.New("unauthorized")

	// Object storage errors.
	ErrStorageRead  = errors.New("storage read error")
	ErrStorageWrite = errors.New("storage write error")

	// Ingestion errors.
	ErrInvalidSourceURL = errors.New("invalid source url")
	ErrSourceResolution = errors.New("source resolution failed")
	ErrTransfer         = errors.New("transfer failed")
	ErrTranscode        = errors.New("transcode failed")
)
