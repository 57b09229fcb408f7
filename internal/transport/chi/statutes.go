package chi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
)

const defaultOptionsTopN = 10

// LookupStatute handles GET /v1/statutes?name=.
func (s *Server) LookupStatute(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "name is required")
		return
	}
	rows, ok := s.deps.Catalog.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, codeStatuteNotFound, "statute not found")
		return
	}
	writeJSON(w, http.StatusOK, statuteResponse{Items: rows})
}

// StatuteOptions handles POST /v1/statutes/options.
func (s *Server) StatuteOptions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ranker == nil {
		notImplemented(w, "similarity ranking")
		return
	}
	var req optionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TopN <= 0 {
		req.TopN = defaultOptionsTopN
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	scored, err := s.deps.Ranker.Rank(ctx, req.Query, s.deps.CorpusID, req.TopN)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]scoredItem, len(scored))
	for i, sc := range scored {
		items[i] = scoredItem{Name: sc.Text, Score: sc.Score}
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, optionsResponse{Items: items})
}

// NarrowStatutes handles POST /v1/statutes/narrow.
func (s *Server) NarrowStatutes(w http.ResponseWriter, r *http.Request) {
	var req narrowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}
	strategy, err := narrowing.ParseStrategy(req.Strategy)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	opts := req.apply(s.deps.Narrowing)
	corpus := req.Candidates
	if len(corpus) == 0 {
		corpus = s.deps.Catalog.Names()
		opts.CorpusID = s.deps.CorpusID
	} else {
		opts.CorpusID = adhocCorpusID(corpus)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.deps.Narrower.Run(ctx, strategy, req.Query, corpus, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, narrowResultToResponse(res))
}

// ChooseStatute handles POST /v1/statutes/choose.
func (s *Server) ChooseStatute(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	choice, err := s.deps.Narrower.MultiThenOne(ctx, req.Query, req.Candidates, req.apply(s.deps.Narrowing))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, chooseResponse{Choice: choice})
}

// RerankStatutes handles POST /v1/statutes/rerank.
func (s *Server) RerankStatutes(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.deps.Narrower.Rerank(ctx, req.Query, req.Shortlist, req.apply(s.deps.Narrowing))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []string{}
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, rerankResponse{Items: items})
}

// RankSections handles POST /v1/sections/rank.
func (s *Server) RankSections(w http.ResponseWriter, r *http.Request) {
	var req sectionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.ActName) == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "act_name and query are required")
		return
	}

	hreq := narrowing.HybridRequest{
		ActName:     req.ActName,
		CorpusID:    req.CorpusID,
		Query:       req.Query,
		Sections:    req.Sections,
		TopN:        req.TopN,
		Model:       req.Model,
		Temperature: s.deps.Narrowing.Temperature,
	}
	if hreq.CorpusID == "" {
		hreq.CorpusID = adhocCorpusID(req.Sections)
	}
	if req.Weight != nil {
		hreq.Weight = *req.Weight
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	scores, err := s.deps.Narrower.HybridSections(ctx, hreq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]sectionScore, len(scores))
	for i, sc := range scores {
		items[i] = sectionScore(sc)
	}
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, sectionsResponse{Items: items})
}

// adhocCorpusID names the embedding table of a caller-supplied list by content.
func adhocCorpusID(items []string) string {
	h := sha256.New()
	for _, it := range items {
		h.Write([]byte(it))
		h.Write([]byte{0})
	}
	return "adhoc-" + hex.EncodeToString(h.Sum(nil))[:16]
}
