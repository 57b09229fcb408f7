package session

import (
	"fmt"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Action is one step a client can take on a session.
type Action string

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

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionChooseFromOptions, ActionRecommendOption, ActionChangeOptions,
		ActionNewSearch, ActionLoadByName, ActionChooseStatute, ActionChooseCitation,
		ActionViewSections:
		return a, nil
	default:
		return "", fmt.Errorf("action %q: %w", s, domain.ErrUnknownAction)
	}
}

// ChangeKind selects how change_options rewrites the option list.
type ChangeKind string

const (
	// ChangeRerank reorders the current options, most applicable first.
	ChangeRerank ChangeKind = "rerank"
	// ChangeGetMore appends further options by similarity.
	ChangeGetMore ChangeKind = "get_more"
)

// ParseChangeKind validates a change kind.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch k := ChangeKind(s); k {
	case ChangeRerank, ChangeGetMore:
		return k, nil
	default:
		return "", fmt.Errorf("option change %q: %w", s, domain.ErrUnknownAction)
	}
}

// SectionAction selects what view_sections does with the chosen statute.
type SectionAction string

const (
	// SectionsOrderByRelevance ranks the statute's sections for the query and shows the first page.
	SectionsOrderByRelevance SectionAction = "order_by_relevance"
	// SectionsSeeMore shows the next page, in contents order until the sections are ranked.
	SectionsSeeMore SectionAction = "see_more"
	// SectionsRecommend names the most relevant section, ranking first if needed.
	SectionsRecommend SectionAction = "recommend"
)

// ParseSectionAction validates a section action. Empty means order_by_relevance.
func ParseSectionAction(s string) (SectionAction, error) {
	if s == "" {
		return SectionsOrderByRelevance, nil
	}
	switch a := SectionAction(s); a {
	case SectionsOrderByRelevance, SectionsSeeMore, SectionsRecommend:
		return a, nil
	default:
		return "", fmt.Errorf("section action %q: %w", s, domain.ErrUnknownAction)
	}
}

// Command is one action with its argument. Value carries the new query,
// statute name, citation, change kind or section action depending on the action.
type Command struct {
	Action Action
	Value  string
}
