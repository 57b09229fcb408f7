package domain

import (
	"errors"
	"fmt"
)

// Configuration errors. Fatal for the current request, never retried.
var (
	// ErrTooManyCandidates signals more candidates than can be addressed by logit bias.
	ErrTooManyCandidates = errors.New("too many candidates")
	// ErrEmptyCandidates signals an empty candidate list.
	ErrEmptyCandidates = errors.New("empty candidate list")
	// ErrEmptyTokenList signals that no allowed tokens were produced for a constrained call.
	ErrEmptyTokenList = errors.New("empty allowed token list")
	// ErrNarrowedSetTooLarge signals that the first round kept more than a final round can take.
	ErrNarrowedSetTooLarge = errors.New("narrowed set too large")
	// ErrInvalidTokenLimit signals a non-positive batch token limit.
	ErrInvalidTokenLimit = errors.New("invalid token limit")
	// ErrInvalidRatio signals a results ratio outside (0, 1].
	ErrInvalidRatio = errors.New("invalid results ratio")
	// ErrInvalidStrategy signals an unknown narrowing strategy name.
	ErrInvalidStrategy = errors.New("invalid narrowing strategy")
)

var (
	// ErrMultiTokenIndex signals an index label that does not encode to a single token.
	ErrMultiTokenIndex = errors.New("index does not encode to a single token")
	// ErrProviderUnavailable signals a completion or embedding provider that kept failing after retries.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderRejected signals a request the provider refused (non-retryable 4xx).
	ErrProviderRejected = errors.New("provider rejected request")
	// ErrDecode signals a model output that does not map back to a candidate.
	ErrDecode = errors.New("undecodable model output")
	// ErrBudgetExceeded signals an exhausted token budget.
	ErrBudgetExceeded = errors.New("token budget exceeded")
	// ErrTableNotFound signals a corpus without a stored embedding table.
	ErrTableNotFound = errors.New("embedding table not found")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound signals an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnknownAction signals an action or option change outside the supported set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrActNotFound signals a statute whose act text is not available locally.
	ErrActNotFound = errors.New("act text not found")
)

// ProviderError carries the attempt count and last cause of a failed provider call.
// It unwraps to ErrProviderUnavailable.
type ProviderError struct {
	Op       string
	Attempts int
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.Op, ErrProviderUnavailable.Error(), e.Attempts, e.Cause)
}

// Unwrap exposes both the sentinel and the last cause.
func (e *ProviderError) Unwrap() []error { return []error{ErrProviderUnavailable, e.Cause} }

// NewProviderError creates a provider exhaustion error.
func NewProviderError(op string, attempts int, cause error) error {
	return &ProviderError{Op: op, Attempts: attempts, Cause: cause}
}
