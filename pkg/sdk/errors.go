package statutefinder

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput        = domain.ErrInvalidInput
	ErrTooManyCandidates   = domain.ErrTooManyCandidates
	ErrNarrowedSetTooLarge = domain.ErrNarrowedSetTooLarge
	ErrSessionNotFound     = domain.ErrSessionNotFound
	ErrTableNotFound       = domain.ErrTableNotFound
	ErrBudgetExceeded      = domain.ErrBudgetExceeded
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrDecode              = domain.ErrDecode
)

// Errors that only exist on the client side of the API.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrStatuteNotFound = errors.New("statute not found")
	ErrNotConfigured   = errors.New("feature not configured on server")
)

var codeSentinels = map[string]error{
	"bad_request":               ErrInvalidInput,
	"validation_failed":         ErrInvalidInput,
	"unauthorized":              ErrUnauthorized,
	"too_many_candidates":       ErrTooManyCandidates,
	"narrowed_set_too_large":    ErrNarrowedSetTooLarge,
	"session_not_found":         ErrSessionNotFound,
	"statute_not_found":         ErrStatuteNotFound,
	"embedding_table_not_found": ErrTableNotFound,
	"token_budget_exceeded":     ErrBudgetExceeded,
	"provider_error":            ErrProviderUnavailable,
	"model_output_invalid":      ErrDecode,
	"not_implemented":           ErrNotConfigured,
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("statutefinder: http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("statutefinder: %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code onto a package sentinel.
func (e *APIError) Unwrap() error {
	return codeSentinels[e.Code]
}
