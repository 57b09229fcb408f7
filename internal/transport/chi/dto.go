package chi

import (
	"time"

	"github.com/kailas-cloud/statutefinder/internal/catalog"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/session"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// narrowingParams override the configured narrowing defaults per request.
type narrowingParams struct {
	Model               string   `json:"model,omitempty"`
	Temperature         *float32 `json:"temperature,omitempty"`
	InitialResultsRatio *float64 `json:"initial_results_ratio,omitempty"`
	FinalResultsRatio   *float64 `json:"final_results_ratio,omitempty"`
	BatchTokenSize      *int     `json:"batch_token_size,omitempty"`
	BatchOverlap        *bool    `json:"batch_overlap,omitempty"`
	RandomizeOrder      *bool    `json:"randomize_order,omitempty"`
	PrefilterTopN       *int     `json:"prefilter_top_n,omitempty"`
}

func (p narrowingParams) apply(opts narrowing.Options) narrowing.Options {
	if p.Model != "" {
		opts.Model = p.Model
	}
	if p.Temperature != nil {
		opts.Temperature = p.Temperature
	}
	if p.InitialResultsRatio != nil {
		opts.InitialResultsRatio = *p.InitialResultsRatio
	}
	if p.FinalResultsRatio != nil {
		opts.FinalResultsRatio = *p.FinalResultsRatio
	}
	if p.BatchTokenSize != nil {
		opts.BatchTokenSize = *p.BatchTokenSize
	}
	if p.BatchOverlap != nil {
		opts.BatchOverlap = *p.BatchOverlap
	}
	if p.RandomizeOrder != nil {
		opts.RandomizeOrder = *p.RandomizeOrder
	}
	if p.PrefilterTopN != nil {
		opts.PrefilterTopN = *p.PrefilterTopN
	}
	return opts
}

type optionsRequest struct {
	Query string `json:"query"`
	TopN  int    `json:"top_n,omitempty"`
}

type scoredItem struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type optionsResponse struct {
	Items []scoredItem `json:"items"`
}

type narrowRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy,omitempty"`
	// Candidates default to every statute name in the catalog.
	Candidates []string `json:"candidates,omitempty"`
	narrowingParams
}

type roundResponse struct {
	Name       string  `json:"name"`
	Batches    int     `json:"batches"`
	Skipped    int     `json:"skipped"`
	DurationMs float64 `json:"duration_ms"`
}

type narrowResponse struct {
	Strategy   string          `json:"strategy"`
	Candidates []string        `json:"candidates"`
	Choice     string          `json:"choice,omitempty"`
	Rounds     []roundResponse `json:"rounds"`
	DurationMs float64         `json:"duration_ms"`
}

func narrowResultToResponse(res narrowing.Result) narrowResponse {
	rounds := make([]roundResponse, len(res.Rounds))
	for i, r := range res.Rounds {
		rounds[i] = roundResponse{
			Name:       r.Name,
			Batches:    r.Batches,
			Skipped:    r.Skipped,
			DurationMs: millis(r.Duration),
		}
	}
	candidates := res.Candidates
	if candidates == nil {
		candidates = []string{}
	}
	return narrowResponse{
		Strategy:   string(res.Strategy),
		Candidates: candidates,
		Choice:     res.Choice,
		Rounds:     rounds,
		DurationMs: millis(res.Total),
	}
}

type chooseRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	narrowingParams
}

type chooseResponse struct {
	Choice string `json:"choice"`
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Shortlist []string `json:"shortlist"`
	narrowingParams
}

type rerankResponse struct {
	Items []string `json:"items"`
}

type sectionsRequest struct {
	ActName  string   `json:"act_name"`
	CorpusID string   `json:"corpus_id,omitempty"`
	Query    string   `json:"query"`
	Sections []string `json:"sections"`
	TopN     int      `json:"top_n,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Model    string   `json:"model,omitempty"`
}

type sectionScore struct {
	Text        string  `json:"text"`
	Relatedness float64 `json:"relatedness"`
	Relevance   float64 `json:"relevance"`
	Weighted    float64 `json:"weighted"`
}

type sectionsResponse struct {
	Items []sectionScore `json:"items"`
}

type statuteResponse struct {
	Items []catalog.Statute `json:"items"`
}

type startSessionRequest struct {
	Query string `json:"query,omitempty"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	Query     string    `json:"query,omitempty"`
	Options   []string  `json:"options"`
	Statute   string    `json:"statute,omitempty"`
	Citation  string    `json:"citation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func sessionToResponse(s session.Session) sessionResponse {
	opts := s.Options
	if opts == nil {
		opts = []string{}
	}
	return sessionResponse{
		ID:        s.ID,
		Query:     s.Query,
		Options:   opts,
		Statute:   s.Statute,
		Citation:  s.Citation,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type actionRequest struct {
	Action string `json:"action"`
	Value  string `json:"value,omitempty"`
}

type actionResponse struct {
	Session        sessionResponse `json:"session"`
	Options        []string        `json:"options,omitempty"`
	Sections       []string        `json:"sections,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
	Citations      []string        `json:"citations,omitempty"`
	Message        string          `json:"message,omitempty"`
}

type usageReport struct {
	Scope           string     `json:"scope"`
	Period          string     `json:"period"`
	Requests        int64      `json:"requests"`
	Tokens          int64      `json:"tokens"`
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	PeriodStartAt   *time.Time `json:"period_start_at,omitempty"`
	PeriodEndAt     *time.Time `json:"period_end_at,omitempty"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

type usageResponse struct {
	Items []usageReport `json:"items"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
