package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/domain"
	"github.com/kailas-cloud/statutefinder/internal/usecase/narrowing"
	"github.com/kailas-cloud/statutefinder/internal/usecase/selector"
)

// Config tunes option retrieval for sessions.
type Config struct {
	// CorpusID names the embedding table of statute names.
	CorpusID string
	// OptionsToRetrieve is how many options a search or get_more adds.
	OptionsToRetrieve int
	// OptionsToShow caps the list returned by choose_from_options and one page of sections.
	OptionsToShow int
	// TTL expires idle sessions. Zero keeps them until End.
	TTL       time.Duration
	Narrowing narrowing.Options
}

const (
	defaultOptionsToRetrieve = 10
	defaultOptionsToShow     = 5
)

// Session is the per-client state of one statute search.
type Session struct {
	ID       string
	Query    string
	Options  []string
	Statute  string
	Citation string
	// Sections of the chosen statute, ranked once SectionsRanked is set.
	Sections       []string
	SectionsShown  int
	SectionsRanked bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Session) clone() Session {
	c := *s
	c.Options = slices.Clone(s.Options)
	c.Sections = slices.Clone(s.Sections)
	return c
}

func (s *Session) resetSections() {
	s.Sections, s.SectionsShown, s.SectionsRanked = nil, 0, false
}

// Reply is the outcome of one dispatched command.
type Reply struct {
	Session        Session
	Options        []string
	Sections       []string
	Recommendation string
	Citations      []string
	Message        string
}

// Manager owns live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	options OptionSource
	rerank  Reranker
	picker  Picker
	catalog Catalog
	// contents and sections back view_sections; both nil disables it.
	contents ContentsSource
	sections SectionRanker
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates a session manager.
func NewManager(options OptionSource, rerank Reranker, picker Picker, catalog Catalog, cfg Config, logger *zap.Logger) *Manager {
	if cfg.OptionsToRetrieve <= 0 {
		cfg.OptionsToRetrieve = defaultOptionsToRetrieve
	}
	if cfg.OptionsToShow <= 0 {
		cfg.OptionsToShow = defaultOptionsToShow
	}
	return &Manager{
		sessions: make(map[string]*Session),
		options:  options,
		rerank:   rerank,
		picker:   picker,
		catalog:  catalog,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithSections enables view_sections.
func (m *Manager) WithSections(contents ContentsSource, sections SectionRanker) *Manager {
	m.contents = contents
	m.sections = sections
	return m
}

// Start opens a session. A non-empty query retrieves the first options immediately.
func (m *Manager) Start(ctx context.Context, query string) (Session, error) {
	now := m.now()
	s := &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if q := strings.TrimSpace(query); q != "" {
		opts, err := m.retrieve(ctx, q, m.cfg.OptionsToRetrieve)
		if err != nil {
			return Session{}, err
		}
		s.Query = q
		s.Options = opts
	}

	m.mu.Lock()
	m.evictLocked(now)
	m.sessions[s.ID] = s
	out := s.clone()
	m.mu.Unlock()

	m.logger.Info("session started", zap.String("session", s.ID), zap.Int("options", len(s.Options)))
	return out, nil
}

// Get returns a copy of a live session.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s, m.now()) {
		return Session{}, false
	}
	return s.clone(), true
}

// End drops a session. It reports whether the session existed.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispatch runs one command against a session and stores the updated state.
// Provider calls run outside the lock; the last writer wins.
func (m *Manager) Dispatch(ctx context.Context, id string, cmd Command) (Reply, error) {
	cur, ok := m.Get(id)
	if !ok {
		return Reply{}, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}

	reply, err := m.apply(ctx, &cur, cmd)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", cmd.Action, err)
	}

	cur.UpdatedAt = m.now()
	m.mu.Lock()
	if _, live := m.sessions[id]; !live {
		m.mu.Unlock()
		return Reply{}, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	stored := cur.clone()
	m.sessions[id] = &stored
	m.mu.Unlock()

	reply.Session = cur.clone()
	m.logger.Debug("session action",
		zap.String("session", id),
		zap.String("action", string(cmd.Action)),
	)
	return reply, nil
}

func (m *Manager) apply(ctx context.Context, s *Session, cmd Command) (Reply, error) {
	switch cmd.Action {
	case ActionChooseFromOptions:
		return Reply{Options: slices.Clone(s.Options[:min(len(s.Options), m.cfg.OptionsToShow)])}, nil

	case ActionRecommendOption:
		if len(s.Options) == 0 {
			return Reply{}, domain.ErrEmptyCandidates
		}
		choice, err := m.picker.PickOne(ctx, selector.Request{
			Query:       s.Query,
			Candidates:  s.Options,
			Prompt:      selector.StatuteSingle,
			Model:       m.cfg.Narrowing.Model,
			Temperature: m.cfg.Narrowing.Temperature,
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Recommendation: choice}, nil

	case ActionChangeOptions:
		kind, err := ParseChangeKind(cmd.Value)
		if err != nil {
			return Reply{}, err
		}
		opts, err := m.change(ctx, s, kind)
		if err != nil {
			return Reply{}, err
		}
		s.Options = opts
		return Reply{Options: slices.Clone(opts)}, nil

	case ActionNewSearch:
		s.Query, s.Options, s.Statute, s.Citation = "", nil, "", ""
		s.resetSections()
		q := strings.TrimSpace(cmd.Value)
		if q == "" {
			return Reply{Message: "enter your search question"}, nil
		}
		opts, err := m.retrieve(ctx, q, m.cfg.OptionsToRetrieve)
		if err != nil {
			return Reply{}, err
		}
		s.Query, s.Options = q, opts
		return Reply{Options: slices.Clone(opts)}, nil

	case ActionLoadByName, ActionChooseStatute:
		return m.load(s, strings.TrimSpace(cmd.Value))

	case ActionChooseCitation:
		if s.Statute == "" {
			return Reply{}, fmt.Errorf("no statute chosen: %w", domain.ErrInvalidInput)
		}
		citations, _ := m.catalog.Citations(s.Statute)
		if !slices.Contains(citations, cmd.Value) {
			return Reply{}, fmt.Errorf("citation %q not listed for %s: %w", cmd.Value, s.Statute, domain.ErrInvalidInput)
		}
		if s.Citation != cmd.Value {
			s.resetSections()
		}
		s.Citation = cmd.Value
		return Reply{Message: fmt.Sprintf("You have chosen %s, %s.", s.Statute, s.Citation)}, nil

	case ActionViewSections:
		return m.viewSections(ctx, s, cmd.Value)

	default:
		return Reply{}, fmt.Errorf("action %q: %w", cmd.Action, domain.ErrUnknownAction)
	}
}

func (m *Manager) load(s *Session, name string) (Reply, error) {
	if name == "" {
		return Reply{}, fmt.Errorf("empty statute name: %w", domain.ErrInvalidInput)
	}
	citations, ok := m.catalog.Citations(name)
	if !ok || len(citations) == 0 {
		return Reply{Message: "Nothing found."}, nil
	}
	s.Statute, s.Citation = name, ""
	s.resetSections()
	if len(citations) > 1 {
		return Reply{
			Citations: slices.Clone(citations),
			Message:   "More than one citation exists for this act name, choose one of the citations.",
		}, nil
	}
	s.Citation = citations[0]
	return Reply{
		Citations: slices.Clone(citations),
		Message:   fmt.Sprintf("You have chosen %s, %s.", name, s.Citation),
	}, nil
}

func (m *Manager) change(ctx context.Context, s *Session, kind ChangeKind) ([]string, error) {
	switch kind {
	case ChangeRerank:
		if len(s.Options) == 0 {
			return nil, domain.ErrEmptyCandidates
		}
		ranked, err := m.rerank.Rerank(ctx, s.Query, s.Options, m.cfg.Narrowing)
		if err != nil {
			return nil, err
		}
		if len(ranked) == 0 {
			m.logger.Warn("rerank listed no options, keeping the current order", zap.Int("options", len(s.Options)))
			return slices.Clone(s.Options), nil
		}
		return ranked, nil
	case ChangeGetMore:
		if s.Query == "" {
			return nil, fmt.Errorf("no query: %w", domain.ErrInvalidInput)
		}
		more, err := m.retrieve(ctx, s.Query, len(s.Options)+m.cfg.OptionsToRetrieve)
		if err != nil {
			return nil, err
		}
		out := slices.Clone(s.Options)
		for _, o := range more {
			if !slices.Contains(out, o) {
				out = append(out, o)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option change %q: %w", kind, domain.ErrUnknownAction)
	}
}

func (m *Manager) viewSections(ctx context.Context, s *Session, value string) (Reply, error) {
	action, err := ParseSectionAction(value)
	if err != nil {
		return Reply{}, err
	}
	if m.contents == nil || m.sections == nil {
		return Reply{}, fmt.Errorf("sections are not configured: %w", domain.ErrInvalidInput)
	}
	if s.Statute == "" || s.Citation == "" {
		return Reply{}, fmt.Errorf("no statute chosen: %w", domain.ErrInvalidInput)
	}

	switch action {
	case SectionsOrderByRelevance:
		if err := m.rankSections(ctx, s); err != nil {
			return Reply{}, err
		}
		return m.nextSections(s), nil

	case SectionsSeeMore:
		if s.Sections == nil {
			act, err := m.contents.Contents(ctx, s.Statute, s.Citation)
			if err != nil {
				return Reply{}, err
			}
			s.Sections = act.Sections
		}
		return m.nextSections(s), nil

	case SectionsRecommend:
		if !s.SectionsRanked {
			if err := m.rankSections(ctx, s); err != nil {
				return Reply{}, err
			}
		}
		if len(s.Sections) == 0 {
			return Reply{}, domain.ErrEmptyCandidates
		}
		return Reply{Recommendation: s.Sections[0]}, nil

	default:
		return Reply{}, fmt.Errorf("section action %q: %w", action, domain.ErrUnknownAction)
	}
}

// rankSections replaces the section list with the hybrid ranking and rewinds paging.
func (m *Manager) rankSections(ctx context.Context, s *Session) error {
	if s.Query == "" {
		return fmt.Errorf("no query: %w", domain.ErrInvalidInput)
	}
	act, err := m.contents.Contents(ctx, s.Statute, s.Citation)
	if err != nil {
		return err
	}
	scores, err := m.sections.HybridSections(ctx, narrowing.HybridRequest{
		ActName:     act.Title,
		CorpusID:    act.CorpusID,
		Query:       s.Query,
		Sections:    act.Sections,
		Model:       m.cfg.Narrowing.Model,
		Temperature: m.cfg.Narrowing.Temperature,
	})
	if err != nil {
		return fmt.Errorf("rank sections: %w", err)
	}
	ranked := make([]string, len(scores))
	for i, sc := range scores {
		ranked[i] = sc.Text
	}
	s.Sections, s.SectionsShown, s.SectionsRanked = ranked, 0, true
	return nil
}

func (m *Manager) nextSections(s *Session) Reply {
	start := min(s.SectionsShown, len(s.Sections))
	end := min(start+m.cfg.OptionsToShow, len(s.Sections))
	s.SectionsShown = end
	if start == end {
		return Reply{Message: "No more sections."}
	}
	return Reply{Sections: slices.Clone(s.Sections[start:end])}
}

func (m *Manager) retrieve(ctx context.Context, query string, topN int) ([]string, error) {
	scored, err := m.options.Rank(ctx, query, m.cfg.CorpusID, topN)
	if err != nil {
		return nil, fmt.Errorf("retrieve options: %w", err)
	}
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Text
	}
	return out, nil
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.cfg.TTL > 0 && now.Sub(s.UpdatedAt) > m.cfg.TTL
}

func (m *Manager) evictLocked(now time.Time) {
	if m.cfg.TTL <= 0 {
		return
	}
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
		}
	}
}
