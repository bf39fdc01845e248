package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

type fakeClient struct {
	calls   int
	batches [][]string
	dims    int
	err     error
}

func (f *fakeClient) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(t))
		out[i] = v
	}
	return out, nil
}

func newTestGateway(client *fakeClient) *Gateway {
	return NewGateway(client, Config{
		Model:          "embed-test",
		Dimensions:     client.dims,
		RequestsPerMin: 10000,
		TokensPerMin:   1000000,
		CacheTTL:       time.Hour,
	})
}

func TestEmbedCacheIdempotence(t *testing.T) {
	client := &fakeClient{dims: 4}
	g := newTestGateway(client)

	first, err := g.EmbedQuery(context.Background(), "four score and seven")
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	reqsAfterFirst, toksAfterFirst, _ := g.Stats()

	second, err := g.EmbedQuery(context.Background(), "four score and seven")
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}

	if client.calls != 1 {
		t.Fatalf("expected 1 external call, got %d", client.calls)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at %d", i)
		}
	}

	reqs, toks, hits := g.Stats()
	if reqs != reqsAfterFirst || toks != toksAfterFirst {
		t.Fatalf("rate counters changed on cached call: %d/%d -> %d/%d", reqsAfterFirst, toksAfterFirst, reqs, toks)
	}
	if hits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", hits)
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	client := &fakeClient{dims: 4}
	g := newTestGateway(client)

	// Warm the cache for two of four inputs.
	if _, err := g.Embed(context.Background(), []string{"bb", "dddd"}); err != nil {
		t.Fatalf("warm: %v", err)
	}

	texts := []string{"a", "bb", "ccc", "dddd"}
	vectors, err := g.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Fatalf("vector %d out of order: got %v for %q", i, vectors[i][0], text)
		}
	}

	// Only the uncached pair went out, in one call.
	if client.calls != 2 {
		t.Fatalf("expected 2 external calls total, got %d", client.calls)
	}
	last := client.batches[len(client.batches)-1]
	if len(last) != 2 || last[0] != "a" || last[1] != "ccc" {
		t.Fatalf("unexpected live batch: %v", last)
	}
}

func TestEmbedCacheExpiry(t *testing.T) {
	client := &fakeClient{dims: 4}
	g := newTestGateway(client)

	base := time.Now()
	g.now = func() time.Time { return base }
	if _, err := g.EmbedQuery(context.Background(), "ephemeral"); err != nil {
		t.Fatalf("embed: %v", err)
	}

	g.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := g.EmbedQuery(context.Background(), "ephemeral"); err != nil {
		t.Fatalf("embed after expiry: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected expired entry to trigger a live call, got %d calls", client.calls)
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	g := newTestGateway(&fakeClient{dims: 4})
	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := g.EmbedQuery(context.Background(), in)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("input %q: expected invalid input, got %v", in, err)
		}
	}
}

func TestEmbedDimensionCheck(t *testing.T) {
	client := &fakeClient{dims: 3}
	g := NewGateway(client, Config{Model: "m", Dimensions: 8, RequestsPerMin: 1000, TokensPerMin: 100000})
	_, err := g.EmbedQuery(context.Background(), "mismatched")
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestEmbedUpstreamError(t *testing.T) {
	client := &fakeClient{dims: 4, err: errors.New("boom")}
	g := newTestGateway(client)
	if _, err := g.Embed(context.Background(), []string{"text"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{3, 2, 1}

	ab, err := Cosine(a, b)
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}
	ba, err := Cosine(b, a)
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}
	if ab != ba {
		t.Fatalf("cosine not symmetric: %v vs %v", ab, ba)
	}

	same, err := Cosine(a, a)
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}
	if same < 0.999999 {
		t.Fatalf("self similarity should be ~1, got %v", same)
	}
}

func TestCosineZeroVector(t *testing.T) {
	got, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("cosine: %v", err)
	}
	if got != 0 {
		t.Fatalf("zero vector similarity should be exactly 0, got %v", got)
	}
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	if !domain.IsKind(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}
