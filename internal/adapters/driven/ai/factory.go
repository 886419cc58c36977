// Package ai provides factory functions for creating embedding adapters
// from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/resilient"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// DefaultCacheSize is the number of embeddings cached per modality.
const DefaultCacheSize = 4096

// InitResult contains the embedders available for each modality.
type InitResult struct {
	Embedders map[domain.Modality]driven.EmbeddingService
	Warnings  []string // Non-fatal issues that caused fallback.
	FellBack  bool     // True if the text embedder fell back to hashing.
}

// Close releases all embedders.
func (r *InitResult) Close() {
	for _, svc := range r.Embedders {
		if svc != nil {
			_ = svc.Close()
		}
	}
}

// Initialise creates the text embedder and, when configured, the image
// embedder. An unreachable text provider falls back to the offline hashing
// embedder with a warning; an unreachable image provider disables the image
// modality. Every embedder is wrapped with batching, rate limiting, retries
// and caching.
func Initialise(ctx context.Context, settings *domain.AppSettings) *InitResult {
	result := &InitResult{Embedders: make(map[domain.Modality]driven.EmbeddingService)}

	text, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil || text == nil {
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("text embeddings: %v; using offline hashing", err))
		}
		text = hashing.NewEmbeddingService(hashing.DefaultDimensions)
		result.FellBack = settings.Embedding.Provider != domain.AIProviderHashing
	}
	result.Embedders[domain.ModalityText] = resilient.FromSettings(text, settings.RateLimit, DefaultCacheSize)

	image, err := CreateAndValidateEmbeddingService(ctx, &settings.ImageEmbedding)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, fmt.Sprintf("image embeddings disabled: %v", err))
	case image != nil:
		result.Embedders[domain.ModalityImage] = resilient.FromSettings(image, settings.RateLimit, DefaultCacheSize)
	}

	for _, w := range result.Warnings {
		logger.Warn("%s", w)
	}
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns (nil, nil) if the provider is not configured.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-rag config init' to fix", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w)", domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates a service for settings and pings it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service named in settings.
// Returns (nil, nil) when no provider is set.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderHashing:
		return hashing.NewEmbeddingService(settings.Dimensions), nil

	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}
