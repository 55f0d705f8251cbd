package chatsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Session Errors
// ============================================================================

var (
	// ErrNoRefreshToken is returned when a refresh is needed but no refresh
	// token is stored. The backend is not contacted.
	ErrNoRefreshToken = errors.New("chatsdk: no refresh token available")

	// ErrRefreshMalformed is returned when the refresh endpoint answered with
	// a success status but no usable access token.
	ErrRefreshMalformed = errors.New("chatsdk: new access token not provided")

	// ErrSessionExpired is returned when a request reissued with a freshly
	// refreshed token is still rejected as unauthorized.
	ErrSessionExpired = errors.New("chatsdk: session expired")

	errRefreshAborted = errors.New("chatsdk: refresh aborted")
)

const defaultRefreshFailure = "failed to refresh token"

// RefreshRejectedError is returned when the refresh endpoint refuses the
// refresh token. Message carries the server supplied reason when present.
type RefreshRejectedError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RefreshRejectedError) Error() string {
	return e.Message
}

// IsSessionError reports whether err ended the current credential. Callers
// should send the user back through login when this is true.
func IsSessionError(err error) bool {
	var rejected *RefreshRejectedError
	return errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrRefreshMalformed) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.As(err, &rejected)
}

// ============================================================================
// API Errors
// ============================================================================

// APIError is a non-2xx answer from a chat endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

// parseAPIError builds an APIError from a response body. The rolechat backend
// reports failures as {"error": "..."}; anything else falls back to the
// caller supplied message.
func parseAPIError(statusCode int, body []byte, fallback string) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: statusCode, Message: errResp.Error}
	}

	if fallback == "" {
		fallback = fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
	}

	return &APIError{StatusCode: statusCode, Message: fallback}
}
