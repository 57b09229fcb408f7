// Package embcache memoizes embedding vectors in the key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/statutefinder/internal/db"
	"github.com/kailas-cloud/statutefinder/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.Item) error
}

// CachedEmbedder caches embeddings per model. Store failures degrade to misses.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	model      string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. model namespaces the keys so vectors from
// different embedding models never mix. cacheTotal has label "result" ("hit"/"miss").
func New(
	inner domain.Embedder,
	s store,
	model string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		model:      model,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithTTL expires cached vectors after d. Zero keeps them.
func (c *CachedEmbedder) WithTTL(d time.Duration) *CachedEmbedder {
	if d > 0 {
		c.ttl = d
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder. A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)
	if vec := c.lookup(ctx, []string{key})[0]; vec != nil {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, []string{key}, [][]float32{res.Embedding})
	return res, nil
}

// BatchEmbed serves hits from the cache and sends only the misses to the inner
// embedder, in one call. Token counts cover the misses.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}
	out := c.lookup(ctx, keys)

	var (
		missTexts []string
		missKeys  []string
		missIdx   []int
	)
	for i, vec := range out {
		if vec == nil {
			missTexts = append(missTexts, texts[i])
			missKeys = append(missKeys, keys[i])
			missIdx = append(missIdx, i)
		}
	}
	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedMany(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missTexts), err)
	}
	for j, i := range missIdx {
		out[i] = res.Embeddings[j]
	}
	c.save(ctx, missKeys, res.Embeddings)

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// lookup returns one vector per key, nil for a miss.
func (c *CachedEmbedder) lookup(ctx context.Context, keys []string) [][]float32 {
	out := make([][]float32, len(keys))
	raw, err := c.store.GetMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Embedding cache read failed", zap.Int("keys", len(keys)), zap.Error(err))
		c.count("miss", len(keys))
		return out
	}

	var hits int
	for i, data := range raw {
		if len(data) == 0 {
			continue
		}
		vec, err := decodeVector(data)
		if err != nil {
			c.logger.Warn("Corrupt cached embedding", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		out[i] = vec
		hits++
	}
	c.count("hit", hits)
	c.count("miss", len(keys)-hits)
	return out
}

func (c *CachedEmbedder) save(ctx context.Context, keys []string, vecs [][]float32) {
	items := make([]db.Item, 0, len(keys))
	for i, vec := range vecs {
		if len(vec) == 0 {
			continue
		}
		items = append(items, db.Item{Key: keys[i], Value: encodeVector(vec), TTL: c.ttl})
	}
	if err := c.store.SetMulti(ctx, items); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.Int("keys", len(items)), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.model + ":" + hex.EncodeToString(h[:])
}

// encodeVector packs float32s little-endian, 4 bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of 4", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
