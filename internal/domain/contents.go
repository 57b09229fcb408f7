package domain

import "strings"

// EntryKind classifies a table-of-contents line.
type EntryKind int

const (
	// EntrySection is a numbered section with a heading, e.g. "12 Tenant's right of access".
	EntrySection EntryKind = iota
	// EntryPart starts with "Part".
	EntryPart
	// EntryDivision starts with "Division".
	EntryDivision
	// EntryContents is the "Contents" header row.
	EntryContents
)

// ContentsEntry is one parsed table-of-contents line.
type ContentsEntry struct {
	Kind    EntryKind
	Number  string
	Heading string
	Line    string
}

// Spent reports whether the entry covers a range of repealed provisions ("3-7").
func (e ContentsEntry) Spent() bool {
	return e.Kind == EntrySection && strings.Contains(e.Number, "-")
}

// ParseContentsLine splits a contents line into kind, number and heading.
// Blank lines are not entries.
func ParseContentsLine(line string) (ContentsEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ContentsEntry{}, false
	}
	e := ContentsEntry{Line: line}
	switch strings.ToLower(fields[0]) {
	case "contents":
		e.Kind = EntryContents
		return e, true
	case "part":
		e.Kind = EntryPart
	case "division":
		e.Kind = EntryDivision
	default:
		e.Kind = EntrySection
		e.Number = fields[0]
		e.Heading = strings.Join(fields[1:], " ")
		return e, true
	}
	if len(fields) > 1 {
		e.Number = fields[1]
	}
	if len(fields) > 2 {
		e.Heading = strings.Join(fields[2:], " ")
	}
	return e, true
}

// SectionsOnly keeps section lines, dropping parts, divisions, the contents
// header and spent ranges. Order is preserved.
func SectionsOnly(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		e, ok := ParseContentsLine(line)
		if !ok || e.Kind != EntrySection || e.Spent() {
			continue
		}
		out = append(out, line)
	}
	return out
}

// SelectHeadingsCount is how many headings are surfaced for a ranked list of n:
// 15 for long acts, otherwise a fifth, never fewer than five.
func SelectHeadingsCount(n int) int {
	k := n / 5
	if n > 100 {
		k = 15
	}
	if k < 5 {
		k = 5
	}
	return k
}

// SelectHeadings returns the leading headings of a ranked list. The slice end is
// one short of SelectHeadingsCount, matching how results have always been shown.
func SelectHeadings(ranked []string) []string {
	end := SelectHeadingsCount(len(ranked)) - 1
	if end > len(ranked) {
		end = len(ranked)
	}
	out := make([]string, end)
	copy(out, ranked[:end])
	return out
}

// JoinWithinBudget joins provisions with blank lines, stopping before the text
// would exceed maxChars.
func JoinWithinBudget(provisions []string, maxChars int) string {
	var b strings.Builder
	for _, p := range provisions {
		if b.Len()+len(p)+2 > maxChars {
			break
		}
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ActContents is the section listing of one act, ready for ranking.
type ActContents struct {
	Title string
	// CorpusID names the embedding table of the act's section lines.
	CorpusID string
	Sections []string
}
