package batch

import "strings"

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) TokenCount(s string) int { return len(strings.Fields(s)) }

// fixedCounter gives every item the same size unless overridden.
type fixedCounter struct {
	size  int
	sizes map[string]int
}

func (c fixedCounter) TokenCount(s string) int {
	if n, ok := c.sizes[s]; ok {
		return n
	}
	return c.size
}

// reverseShuffle is a deterministic stand-in for the random shuffle.
func reverseShuffle(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
