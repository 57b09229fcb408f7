package batch

import (
	"fmt"
	"math/rand/v2"

	"github.com/kailas-cloud/statutefinder/internal/domain"
)

// DefaultTokenLimit is the batch size used by the narrowing strategies.
const DefaultTokenLimit = 300

// Options controls one partitioning run.
type Options struct {
	TokenLimit int
	Randomize  bool
	// Overlap repeats the first item of each batch at the end of the previous one,
	// so a choice made near a boundary is seen together with its neighbour.
	Overlap bool
	// Model selects the token counter when the partitioner has per-model counters.
	Model string
}

// Partitioner splits candidate lists into token-bounded batches.
type Partitioner struct {
	tokens   TokenCounter
	forModel func(model string) (TokenCounter, error)
	shuffle  func([]string)
}

// New creates a partitioner with a randomly seeded shuffle.
func New(tokens TokenCounter) *Partitioner {
	return &Partitioner{
		tokens: tokens,
		shuffle: func(s []string) {
			rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
}

// WithShuffle replaces the shuffle used when Options.Randomize is set.
func (p *Partitioner) WithShuffle(fn func([]string)) *Partitioner {
	if fn != nil {
		p.shuffle = fn
	}
	return p
}

// WithModelCounters counts tokens with the encoding of Options.Model when it is set.
func (p *Partitioner) WithModelCounters(fn func(model string) (TokenCounter, error)) *Partitioner {
	p.forModel = fn
	return p
}

// Partition walks items greedily and closes a batch when the next item would
// push it past opts.TokenLimit. An item larger than the limit gets a batch of
// its own. The caller's slice is never modified.
func (p *Partitioner) Partition(items []string, opts Options) ([]domain.Batch, error) {
	if opts.TokenLimit <= 0 {
		return nil, fmt.Errorf("token limit %d: %w", opts.TokenLimit, domain.ErrInvalidTokenLimit)
	}
	if len(items) == 0 {
		return nil, nil
	}
	tokens := p.tokens
	if opts.Model != "" && p.forModel != nil {
		c, err := p.forModel(opts.Model)
		if err != nil {
			return nil, fmt.Errorf("token counter for %q: %w", opts.Model, err)
		}
		tokens = c
	}

	list := make([]string, len(items))
	copy(list, items)
	if opts.Randomize {
		p.shuffle(list)
	}

	var (
		batches []domain.Batch
		cur     domain.Batch
		curSize int
	)
	for _, item := range list {
		n := tokens.TokenCount(item)
		if len(cur) > 0 && curSize+n > opts.TokenLimit {
			batches = append(batches, cur)
			if opts.Overlap {
				batches[len(batches)-1] = bridge(batches[len(batches)-1], item)
			}
			cur = domain.Batch{item}
			curSize = n
			continue
		}
		cur = append(cur, item)
		curSize += n
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches, nil
}

// bridge appends next to a closed batch unless it already ends with it.
func bridge(closed domain.Batch, next string) domain.Batch {
	if closed[len(closed)-1] == next {
		return closed
	}
	return append(closed, next)
}
