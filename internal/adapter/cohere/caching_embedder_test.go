package cohere

import (
	"context"
	"testing"
	"time"
)

// countingEmbedder records every upstream call so tests can verify what the
// cache actually forwarded.
type countingEmbedder struct {
	embedCalls []string
	batchCalls [][]string
	vectors    map[string][]float32
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{vectors: map[string][]float32{}}
}

func (c *countingEmbedder) vectorFor(text string) []float32 {
	if vec, ok := c.vectors[text]; ok {
		return vec
	}
	vec := []float32{float32(len(text)), float32(len(c.vectors))}
	c.vectors[text] = vec
	return vec
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.embedCalls = append(c.embedCalls, text)
	return c.vectorFor(text), nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.batchCalls = append(c.batchCalls, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = c.vectorFor(text)
	}
	return out, nil
}

func (c *countingEmbedder) Version() string { return "counting-v1" }

func TestCachingEmbedder_RepeatEmbedHitsCache(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachingEmbedder(inner, 16, 0)

	first, err := cached.Embed(context.Background(), "what is a channel")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	second, err := cached.Embed(context.Background(), "what is a channel")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(inner.embedCalls) != 1 {
		t.Fatalf("expected 1 upstream call, got %d", len(inner.embedCalls))
	}
	if first[0] != second[0] || first[1] != second[1] {
		t.Fatalf("cache returned a different vector: %v vs %v", first, second)
	}
}

func TestCachingEmbedder_BatchOnlyForwardsMisses(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachingEmbedder(inner, 16, 0)

	if _, err := cached.Embed(context.Background(), "a"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	vectors, err := cached.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}

	if len(inner.batchCalls) != 1 {
		t.Fatalf("expected 1 batch call, got %d", len(inner.batchCalls))
	}
	forwarded := inner.batchCalls[0]
	if len(forwarded) != 2 || forwarded[0] != "b" || forwarded[1] != "c" {
		t.Fatalf("expected only misses forwarded, got %v", forwarded)
	}

	// Position 0 must come from the cache, in input order.
	if vectors[0][0] != float32(len("a")) {
		t.Fatalf("unexpected cached vector at position 0: %v", vectors[0])
	}
}

func TestCachingEmbedder_FullyCachedBatchSkipsUpstream(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachingEmbedder(inner, 16, 0)

	texts := []string{"x", "y"}
	if _, err := cached.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if _, err := cached.EmbedBatch(context.Background(), texts); err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}

	if len(inner.batchCalls) != 1 {
		t.Fatalf("expected second batch to be served from cache, got %d calls", len(inner.batchCalls))
	}
}

func TestCachingEmbedder_TTLExpiresEntries(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachingEmbedder(inner, 16, 20*time.Millisecond)

	if _, err := cached.Embed(context.Background(), "stale"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := cached.Embed(context.Background(), "stale"); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(inner.embedCalls) != 2 {
		t.Fatalf("expected expired entry to re-embed, got %d calls", len(inner.embedCalls))
	}
}

func TestCachingEmbedder_VersionDelegatesToInner(t *testing.T) {
	cached := NewCachingEmbedder(newCountingEmbedder(), 16, 0)
	if cached.Version() != "counting-v1" {
		t.Fatalf("unexpected version: %s", cached.Version())
	}
}
