package domain

import (
	"strconv"
	"strings"
)

// MaxBiasTokens is the provider's cap on logit bias entries per request.
const MaxBiasTokens = 300

// MaxCandidates is the largest candidate set a single-pick call can address:
// one biased index token per candidate.
const MaxCandidates = MaxBiasTokens

// MaxMultiCandidates is the largest set a multi-pick call can address, which
// also biases the separator and the stop marker.
const MaxMultiCandidates = MaxBiasTokens - 2

// Batch is an ordered group of candidates sent in one selector call.
type Batch []string

// IndexMap assigns contiguous decimal indices 0..N-1 to candidates in input order.
type IndexMap struct {
	items []string
	keys  []string
}

// NewIndexMap builds an index map over items. The slice is copied.
func NewIndexMap(items []string) IndexMap {
	m := IndexMap{
		items: make([]string, len(items)),
		keys:  make([]string, len(items)),
	}
	copy(m.items, items)
	for i := range items {
		m.keys[i] = strconv.Itoa(i)
	}
	return m
}

// Len returns the number of candidates.
func (m IndexMap) Len() int { return len(m.items) }

// Keys returns the index labels in order.
func (m IndexMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Items returns the candidates in order.
func (m IndexMap) Items() []string {
	out := make([]string, len(m.items))
	copy(out, m.items)
	return out
}

// Lookup maps an index label back to its candidate.
func (m IndexMap) Lookup(key string) (string, bool) {
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 || i >= len(m.items) {
		return "", false
	}
	// "01" parses to 1 but is not a label we emitted.
	if m.keys[i] != key {
		return "", false
	}
	return m.items[i], true
}

// Format renders the "index: item" listing used in prompts.
func (m IndexMap) Format() string {
	var b strings.Builder
	for i, item := range m.items {
		b.WriteString(m.keys[i])
		b.WriteString(": ")
		b.WriteString(item)
		b.WriteByte('\n')
	}
	return b.String()
}
