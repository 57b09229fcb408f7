package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/logger"
)

// Error codes returned in the "code" field of error bodies.
const (
	codeBadRequest         = "bad_request"
	codeUnauthorized       = "unauthorized"
	codeValidationFailed   = "validation_failed"
	codeTooManyCandidates  = "too_many_candidates"
	codeNarrowedTooLarge   = "narrowed_set_too_large"
	codeSessionNotFound    = "session_not_found"
	codeStatuteNotFound    = "statute_not_found"
	codeActNotFound        = "act_not_found"
	codeTableNotFound      = "embedding_table_not_found"
	codeBudgetExceeded     = "token_budget_exceeded"
	codeProviderError      = "provider_error"
	codeModelOutputInvalid = "model_output_invalid"
	codeInternalError      = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
	sentinelHandler(domain.ErrTableNotFound, http.StatusNotFound, codeTableNotFound),
	sentinelHandler(domain.ErrActNotFound, http.StatusNotFound, codeActNotFound),
	sentinelHandler(domain.ErrUnknownAction, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrInvalidStrategy, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrInvalidRatio, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrInvalidTokenLimit, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrEmptyCandidates, http.StatusBadRequest, codeValidationFailed),
	sentinelHandler(domain.ErrTooManyCandidates, http.StatusBadRequest, codeTooManyCandidates),
	sentinelHandler(domain.ErrNarrowedSetTooLarge, http.StatusUnprocessableEntity, codeNarrowedTooLarge),
	sentinelHandler(domain.ErrBudgetExceeded, http.StatusPaymentRequired, codeBudgetExceeded),
	sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, codeProviderError),
	sentinelHandler(domain.ErrProviderRejected, http.StatusBadGateway, codeProviderError),
	sentinelHandler(domain.ErrDecode, http.StatusBadGateway, codeModelOutputInvalid),
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The body carries the sentinel text only, never the wrapped detail.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
