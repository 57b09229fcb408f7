package selector

import (
	"strings"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// Prompt is a system message plus a user template.
// The template must contain {options} and {query}.
type Prompt struct {
	System   string
	Template string
}

// IsZero reports whether neither part is set.
func (p Prompt) IsZero() bool { return p.System == "" && p.Template == "" }

func (p Prompt) or(def Prompt) Prompt {
	if p.IsZero() {
		return def
	}
	if p.Template == "" {
		p.Template = def.Template
	}
	return p
}

// Messages renders the prompt. Placeholders are filled in both parts;
// an empty system message is omitted.
func (p Prompt) Messages(options, query string) []domain.Message {
	r := strings.NewReplacer("{options}", options, "{query}", query)
	msgs := make([]domain.Message, 0, 2)
	if p.System != "" {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: r.Replace(p.System)})
	}
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: r.Replace(p.Template)})
}

// Statute prompts ask for indices into a list of BC statute names.
var (
	StatuteSingle = Prompt{
		System: "You are an expert British Columbia lawyer experienced in all areas of the law. " +
			"You communicate only in single numbers. Choose **only** the **most likely** statute.",
		Template: "\nHere is a list of British Columbia Statutes by index number:\n{options}\n\n" +
			"Return the index of the statute that should be queried in order to answer the following question:\n" +
			"{query}\n\nIndex:\n",
	}

	StatuteMulti = Prompt{
		System: "You are an expert British Columbia lawyer experienced in all areas of the law. " +
			"You communicate only in single numbers separated by spaces, representing the indices of statutes. " +
			"Choose **only** the **most likely** statutes.",
		Template: "\nHere is a list of British Columbia Statutes by index number:\n{options}\n\n" +
			"Return the index(es) of the statute(s) that should be queried in order to answer the following question:\n" +
			"{query}\n\nIndex(es) separated by \" \":\n",
	}

	// StatuteRerank keeps every option and reorders it.
	StatuteRerank = Prompt{
		System: "You are an expert lawyer in British Columbia. You are prioritizing the order of your search. " +
			"The below statutes have been identified as relevant. You will rerank them. " +
			"Return all of the provided options, but reorder them so that the most applicable laws are first, " +
			"and the least applicable last",
		Template: StatuteMulti.Template,
	}
)

// Generic prompts work for any option list.
var (
	GenericSingle = Prompt{
		System:   "You are a research expert.",
		Template: "From these options:\n'''\n{options}\n'''\nWhich is best to answer this query:\nQuery: {query}\nIndex of best option:",
	}

	GenericMulti = Prompt{
		System: "You are a research expert.\n\n" +
			"Return index numbers of chosen options separated by \" \" and ending with \".\".",
		Template: "Consider these options:\n{options}\n\nWhich options are most relevant to this query:\n{query}\n\n" +
			"Options by greatest relevance:",
	}
)

const (
	sectionsSystem = "You are an expert lawyer in British Columbia. " +
		"Respond with a list of section numbers separated by ' ', then 'END':"

	sectionsTemplate = "Review these sections of the {act}:\n\n{options}\n\n" +
		"Choose the most relevant sections for this query: \n{query}\n\n" +
		"Return a list of only the most relevant section numbers. " +
		"Separate each section number with a space (\" \"), and end the list with 'END'. List:"

	gateSystem = "Respond true or false to the user's query"

	toolSystem = "Your goal is to recommend the best tool for {task}.\n" +
		"- Respond with the index of the best tool to use: {options}"
)
