package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

// StartSession handles POST /v1/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notImplemented(w, "sessions")
		return
	}
	var req startSessionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	sess, err := s.deps.Sessions.Start(ctx, req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	w.Header().Set("Location", "/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notImplemented(w, "sessions")
		return
	}
	sess, ok := s.deps.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		s.handleDomainError(w, r, domain.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

// EndSession handles DELETE /v1/sessions/{id}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notImplemented(w, "sessions")
		return
	}
	if !s.deps.Sessions.End(chi.URLParam(r, "id")) {
		s.handleDomainError(w, r, domain.ErrSessionNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionAction handles POST /v1/sessions/{id}/actions.
func (s *Server) SessionAction(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		notImplemented(w, "sessions")
		return
	}
	var req actionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	action, err := session.ParseAction(req.Action)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	reply, err := s.deps.Sessions.Dispatch(ctx, chi.URLParam(r, "id"), session.Command{
		Action: action,
		Value:  req.Value,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, actionResponse{
		Session:        sessionToResponse(reply.Session),
		Options:        reply.Options,
		Sections:       reply.Sections,
		Recommendation: reply.Recommendation,
		Citations:      reply.Citations,
		Message:        reply.Message,
	})
}
