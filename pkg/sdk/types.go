package statutefinder

import "time"

// Strategy names a narrowing algorithm.
type Strategy string

// Narrowing strategies understood by the service.
const (
	VoteThenRefine   Strategy = "vote_then_refine"
	OverlapConsensus Strategy = "overlap_consensus"
	ExhaustiveSweep  Strategy = "exhaustive_sweep"
)

// Params override the server's narrowing defaults for one call. Nil fields keep the default.
type Params struct {
	Model               string   `json:"model,omitempty"`
	Temperature         *float32 `json:"temperature,omitempty"`
	InitialResultsRatio *float64 `json:"initial_results_ratio,omitempty"`
	FinalResultsRatio   *float64 `json:"final_results_ratio,omitempty"`
	BatchTokenSize      *int     `json:"batch_token_size,omitempty"`
	BatchOverlap        *bool    `json:"batch_overlap,omitempty"`
	RandomizeOrder      *bool    `json:"randomize_order,omitempty"`
	PrefilterTopN       *int     `json:"prefilter_top_n,omitempty"`
}

// Usage is the provider consumption the server reported for one call.
type Usage struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	EmbeddingTokens  int
}

// Statute is one catalog row.
type Statute struct {
	Name        string `json:"name"`
	Citation    string `json:"citation"`
	DirectoryID string `json:"directory_id"`
	ActID       string `json:"act_id"`
	Repealed    bool   `json:"repealed"`
	URL         string `json:"url"`
}

// ScoredStatute is a statute name with its similarity to the query.
type ScoredStatute struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// NarrowRequest selects statutes relevant to a query.
// Empty Candidates narrow over the whole catalog.
type NarrowRequest struct {
	Query      string   `json:"query"`
	Strategy   Strategy `json:"strategy,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
	Params
}

// Round is one stage of a narrowing run.
type Round struct {
	Name       string  `json:"name"`
	Batches    int     `json:"batches"`
	Skipped    int     `json:"skipped"`
	DurationMs float64 `json:"duration_ms"`
}

// NarrowResult is the outcome of a narrowing run. Choice is set by single-pick strategies.
type NarrowResult struct {
	Strategy   Strategy `json:"strategy"`
	Candidates []string `json:"candidates"`
	Choice     string   `json:"choice,omitempty"`
	Rounds     []Round  `json:"rounds"`
	DurationMs float64  `json:"duration_ms"`
	Usage      Usage    `json:"-"`
}

// SectionsRequest ranks table-of-contents lines of one act.
type SectionsRequest struct {
	ActName  string   `json:"act_name"`
	CorpusID string   `json:"corpus_id,omitempty"`
	Query    string   `json:"query"`
	Sections []string `json:"sections"`
	TopN     int      `json:"top_n,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Model    string   `json:"model,omitempty"`
}

// SectionScore is one section with its similarity, model relevance and blended score.
type SectionScore struct {
	Text        string  `json:"text"`
	Relatedness float64 `json:"relatedness"`
	Relevance   float64 `json:"relevance"`
	Weighted    float64 `json:"weighted"`
}

// Action is one step on an interactive session.
type Action string

// Session actions.
const (
	ActionChooseFromOptions Action = "choose_from_options"
	ActionRecommendOption   Action = "recommend_option"
	ActionChangeOptions     Action = "change_options"
	ActionNewSearch         Action = "new_search"
	ActionLoadByName        Action = "load_by_name"
	ActionChooseStatute     Action = "choose_statute"
	ActionChooseCitation    Action = "choose_citation"
	ActionViewSections      Action = "view_sections"
)

// Values for ActionViewSections.
const (
	SectionsOrderByRelevance = "order_by_relevance"
	SectionsSeeMore          = "see_more"
	SectionsRecommend        = "recommend"
)

// Session is the server-side state of an interactive search.
type Session struct {
	ID        string    `json:"id"`
	Query     string    `json:"query,omitempty"`
	Options   []string  `json:"options"`
	Statute   string    `json:"statute,omitempty"`
	Citation  string    `json:"citation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reply is the result of a session action.
type Reply struct {
	Session        Session  `json:"session"`
	Options        []string `json:"options,omitempty"`
	Sections       []string `json:"sections,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Citations      []string `json:"citations,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport is the token consumption of one budget scope.
type UsageReport struct {
	Scope           string      `json:"scope"`
	Period          UsagePeriod `json:"period"`
	Requests        int         `json:"requests"`
	Tokens          int         `json:"tokens"`
	TokensLimit     int         `json:"tokens_limit"`
	TokensRemaining int         `json:"tokens_remaining"`
	IsExhausted     bool        `json:"is_exhausted"`
	PeriodStartAt   *time.Time  `json:"period_start_at,omitempty"`
	PeriodEndAt     *time.Time  `json:"period_end_at,omitempty"`
	ResetsAt        *time.Time  `json:"resets_at,omitempty"`
}

// HealthStatus represents the aggregated service health.
type HealthStatus struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}
