package domain

// KeyPrefix namespaces every key this service writes to the shared KV store.
const KeyPrefix = "statutefinder:"

// EmbeddingRow is one corpus entry with its vector.
type EmbeddingRow struct {
	Text   string
	Vector []float32
}

// EmbeddingTable holds precomputed vectors for one corpus, in corpus order.
// Tables are rebuilt wholesale and never mutated in place.
type EmbeddingTable struct {
	CorpusID string
	Rows     []EmbeddingRow
}

// Len returns the number of rows.
func (t EmbeddingTable) Len() int { return len(t.Rows) }

// Covers reports whether the table holds exactly the given corpus in the same order.
func (t EmbeddingTable) Covers(corpus []string) bool {
	if len(t.Rows) != len(corpus) {
		return false
	}
	for i, r := range t.Rows {
		if r.Text != corpus[i] {
			return false
		}
	}
	return true
}
