package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/simplomaticindia/they-might-say-platform/internal/core/domain"
)

// Client is the raw external embedding model behind the gateway.
type Client interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type Config struct {
	Model          string
	Dimensions     int
	RequestsPerMin int
	TokensPerMin   int
	CacheTTL       time.Duration
}

// Gateway wraps the embedding model with a content-addressed TTL cache
// and two rolling rate limits (requests/min, estimated tokens/min).
// Cache and limiter state is shared across all callers of one instance.
type Gateway struct {
	client Client
	model  string
	dims   int
	ttl    time.Duration

	reqLimiter *rate.Limiter
	tokLimiter *rate.Limiter

	mu           sync.Mutex
	cache        map[string]cacheEntry
	liveRequests int64
	liveTokens   int64
	cacheHits    int64

	now func() time.Time
}

type cacheEntry struct {
	vector    []float32
	expiresAt time.Time
}

func NewGateway(client Client, cfg Config) *Gateway {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 60
	}
	if cfg.TokensPerMin <= 0 {
		cfg.TokensPerMin = 150000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 7 * 24 * time.Hour
	}
	return &Gateway{
		client:     client,
		model:      cfg.Model,
		dims:       cfg.Dimensions,
		ttl:        cfg.CacheTTL,
		reqLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerMin)/60, cfg.RequestsPerMin),
		tokLimiter: rate.NewLimiter(rate.Limit(cfg.TokensPerMin)/60, cfg.TokensPerMin),
		cache:      make(map[string]cacheEntry),
		now:        time.Now,
	}
}

func (g *Gateway) Dimensions() int { return g.dims }

// EmbedQuery embeds one text, serving it from cache when possible.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Embed returns one vector per input in input order. Cached and uncached
// inputs are partitioned, the uncached subset goes out as a single batch
// call, and results are reassembled into the original ordering.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embed: %w: empty text at index %d", domain.ErrInvalidInput, i)
		}
	}

	out := make([][]float32, len(texts))
	var missing []int

	g.mu.Lock()
	now := g.now()
	for i, t := range texts {
		if entry, ok := g.cache[g.cacheKey(t)]; ok && now.Before(entry.expiresAt) {
			out[i] = entry.vector
			g.cacheHits++
		} else {
			missing = append(missing, i)
		}
	}
	g.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	batch := make([]string, len(missing))
	tokens := 0
	for j, i := range missing {
		batch[j] = texts[i]
		tokens += estimateTokens(texts[i])
	}

	// Suspend until both rolling windows admit the call. No lock is held
	// while waiting or while the network call is in flight.
	if err := g.reqLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embed: rate wait: %w", err)
	}
	if err := g.waitTokens(ctx, tokens); err != nil {
		return nil, fmt.Errorf("embed: token rate wait: %w", err)
	}

	vectors, err := g.client.EmbedBatch(ctx, g.model, batch)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embed: %w: got %d vectors for %d inputs", domain.ErrUpstream, len(vectors), len(batch))
	}
	for _, v := range vectors {
		if len(v) != g.dims {
			return nil, fmt.Errorf("embed: %w: got %d dimensions, want %d", domain.ErrDimensionMismatch, len(v), g.dims)
		}
	}

	g.mu.Lock()
	expires := g.now().Add(g.ttl)
	for j, i := range missing {
		out[i] = vectors[j]
		g.cache[g.cacheKey(texts[i])] = cacheEntry{vector: vectors[j], expiresAt: expires}
	}
	g.liveRequests++
	g.liveTokens += int64(tokens)
	g.mu.Unlock()

	return out, nil
}

// waitTokens reserves n token units, splitting reservations larger than
// the limiter burst so oversized batches still pass eventually.
func (g *Gateway) waitTokens(ctx context.Context, n int) error {
	burst := g.tokLimiter.Burst()
	for n > 0 {
		step := n
		if step > burst {
			step = burst
		}
		if err := g.tokLimiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Stats reports live-call counters and cache hit count since creation.
func (g *Gateway) Stats() (liveRequests, liveTokens, cacheHits int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.liveRequests, g.liveTokens, g.cacheHits
}

func (g *Gateway) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(g.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// estimateTokens approximates the model's token count from word count.
func estimateTokens(text string) int {
	n := int(float64(len(strings.Fields(text))) * 1.3)
	if n < 1 {
		n = 1
	}
	return n
}
