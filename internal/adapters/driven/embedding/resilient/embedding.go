// Package resilient wraps an embedding service with request batching, rate
// limiting, retries with exponential backoff and an LRU vector cache.
package resilient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBatchSize  = 64
	DefaultMaxRetries = 3
	DefaultBackoff    = 200 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// Option configures an EmbeddingService.
type Option func(*EmbeddingService)

// WithRateLimit bounds requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *EmbeddingService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBatchSize sets the maximum number of texts per request.
func WithBatchSize(n int) Option {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetries sets the retry count and the base of the exponential backoff.
func WithRetries(maxRetries int, base time.Duration) Option {
	return func(s *EmbeddingService) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if base > 0 {
			s.backoff = base
		}
	}
}

// WithCache keeps up to size vectors keyed by text. size <= 0 disables it.
func WithCache(size int) Option {
	return func(s *EmbeddingService) {
		if size <= 0 {
			s.cache = nil
			return
		}
		cache, err := lru.New[string, []float32](size)
		if err != nil {
			logger.Warn("embedding cache disabled: %v", err)
			return
		}
		s.cache = cache
	}
}

// EmbeddingService decorates another embedding service.
type EmbeddingService struct {
	inner      driven.EmbeddingService
	limiter    *rate.Limiter
	batchSize  int
	maxRetries int
	backoff    time.Duration
	cacheMu    sync.Mutex
	cache      *lru.Cache[string, []float32]
}

// New wraps inner.
func New(inner driven.EmbeddingService, opts ...Option) *EmbeddingService {
	s := &EmbeddingService{
		inner:      inner,
		batchSize:  DefaultBatchSize,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromSettings wraps inner with the configured rate limit, retries and batching.
func FromSettings(inner driven.EmbeddingService, cfg domain.RateLimitSettings, cacheSize int) *EmbeddingService {
	return New(inner,
		WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		WithBatchSize(cfg.BatchSize),
		WithRetries(cfg.MaxRetries, 0),
		WithCache(cacheSize),
	)
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts, serving cached vectors and splitting the rest
// into rate-limited, retried requests. Any failed request fails the call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	// Identical texts are embedded once.
	missing := make(map[string][]int)
	var order []string
	for i, text := range texts {
		if vec, ok := s.lookup(text); ok {
			results[i] = vec
			continue
		}
		if _, seen := missing[text]; !seen {
			order = append(order, text)
		}
		missing[text] = append(missing[text], i)
	}

	for start := 0; start < len(order); start += s.batchSize {
		end := min(start+s.batchSize, len(order))
		batch := order[start:end]

		vecs, err := s.embedWithRetry(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, text := range batch {
			for _, idx := range missing[text] {
				results[idx] = cloneVector(vecs[j])
			}
			s.store(text, vecs[j])
		}
	}

	return results, nil
}

func (s *EmbeddingService) embedWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	backoff := retry.WithMaxRetries(
		uint64(s.maxRetries), // #nosec G115 -- non-negative by construction
		retry.WithCappedDuration(DefaultMaxBackoff, retry.NewExponential(s.backoff)),
	)

	var vecs [][]float32
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		out, err := s.inner.EmbedBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Debug("Embedding attempt %d failed: %v", attempt, err)
			return retry.RetryableError(err)
		}
		if len(out) != len(batch) {
			return fmt.Errorf("%w: expected %d vectors, got %d", domain.ErrEmbedding, len(batch), len(out))
		}
		vecs = out
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmbedding) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: after %d attempts: %w", domain.ErrEmbedding, attempt, err)
	}
	return vecs, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the wrapped service is reachable.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	s.cacheMu.Lock()
	if s.cache != nil {
		s.cache.Purge()
	}
	s.cacheMu.Unlock()
	return s.inner.Close()
}

func (s *EmbeddingService) lookup(text string) ([]float32, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cache == nil {
		return nil, false
	}
	vec, ok := s.cache.Get(cacheKey(text))
	if !ok {
		return nil, false
	}
	return cloneVector(vec), true
}

func (s *EmbeddingService) store(text string, vec []float32) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cache == nil || len(vec) == 0 {
		return
	}
	s.cache.Add(cacheKey(text), cloneVector(vec))
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if src == nil {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
