package cohere

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"book-orchestrator/internal/domain"
)

// CachingEmbedder wraps an Embedder with an in-memory LRU keyed by input
// text. Repeated queries skip the upstream call entirely.
type CachingEmbedder struct {
	inner domain.Embedder
	cache *expirable.LRU[string, []float32]
}

// NewCachingEmbedder builds the cache decorator. A ttl of zero keeps entries
// until they are evicted by size.
func NewCachingEmbedder(inner domain.Embedder, size int, ttl time.Duration) *CachingEmbedder {
	return &CachingEmbedder{
		inner: inner,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, vec)
	return vec, nil
}

func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		c.cache.Add(missing[j], vec)
	}
	return out, nil
}

func (c *CachingEmbedder) Version() string {
	return c.inner.Version()
}

var _ domain.Embedder = (*CachingEmbedder)(nil)
