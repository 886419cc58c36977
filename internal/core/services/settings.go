package services

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySegTarget     = "segmentation.target_tokens"
	keySegMax        = "segmentation.max_tokens"
	keySegMin        = "segmentation.min_tokens"
	keySegDrop       = "segmentation.drop_threshold"
	keySegStd        = "segmentation.std_multiplier"
	keySegRadius     = "segmentation.smoothing_radius"
	keySegBatch      = "segmentation.embed_batch_size"
	keyChunker       = "chunking.chunker"
	keyChunkWindow   = "chunking.window_runes"
	keyChunkOverlap  = "chunking.overlap_runes"
	keyFusionTopK    = "fusion.top_k"
	keyFusionMode    = "fusion.strategy"
	keyFusionRRF     = "fusion.rrf_constant"
	keySearchLimit   = "search.default_limit"
	keyTokenizer     = "tokenizer.provider"
	keyTokenEncoding = "tokenizer.encoding"
	keyRateRPS       = "rate_limit.requests_per_second"
	keyRateBurst     = "rate_limit.burst"
	keyRateRetries   = "rate_limit.max_retries"
	keyRateBatch     = "rate_limit.batch_size"
	keyDataDir       = "storage.data_dir"

	prefixEmbedding      = "embedding."
	prefixImageEmbedding = "image_embedding."
)

// SettingsService maps flat config keys onto domain.AppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Missing or malformed values
// fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Segmentation: domain.SegmentationSettings{
			TargetTokens:            s.getInt(keySegTarget, d.Segmentation.TargetTokens),
			MaxTokens:               s.getInt(keySegMax, d.Segmentation.MaxTokens),
			MinTokens:               s.getInt(keySegMin, d.Segmentation.MinTokens),
			SimilarityDropThreshold: s.getFloat(keySegDrop, d.Segmentation.SimilarityDropThreshold),
			StdMultiplier:           s.getFloat(keySegStd, d.Segmentation.StdMultiplier),
			SmoothingWindowRadius:   s.getInt(keySegRadius, d.Segmentation.SmoothingWindowRadius),
			EmbedBatchSize:          s.getInt(keySegBatch, d.Segmentation.EmbedBatchSize),
		},
		Chunking: domain.ChunkingSettings{
			Chunker:      s.getChunker(d.Chunking.Chunker),
			WindowRunes:  s.getInt(keyChunkWindow, d.Chunking.WindowRunes),
			OverlapRunes: s.getInt(keyChunkOverlap, d.Chunking.OverlapRunes),
		},
		Fusion: domain.FusionSettings{
			TopKForConfidence: s.getInt(keyFusionTopK, d.Fusion.TopKForConfidence),
			Strategy:          s.getStrategy(d.Fusion.Strategy),
			RRFConstant:       s.getInt(keyFusionRRF, d.Fusion.RRFConstant),
		},
		Search: domain.SearchSettings{
			DefaultLimit: s.getInt(keySearchLimit, d.Search.DefaultLimit),
		},
		Embedding:      s.getEmbedding(prefixEmbedding, d.Embedding),
		ImageEmbedding: s.getEmbedding(prefixImageEmbedding, d.ImageEmbedding),
		Tokenizer: domain.TokenizerSettings{
			Provider: s.getTokenizer(d.Tokenizer.Provider),
			Encoding: s.getString(keyTokenEncoding, d.Tokenizer.Encoding),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateRPS, d.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, d.RateLimit.Burst),
			MaxRetries:        s.getInt(keyRateRetries, d.RateLimit.MaxRetries),
			BatchSize:         s.getInt(keyRateBatch, d.RateLimit.BatchSize),
		},
		Storage: domain.StorageSettings{
			DataDir: s.getString(keyDataDir, d.Storage.DataDir),
		},
	}

	return settings, nil
}

// Save validates and persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key string
		val any
	}{
		{keySegTarget, settings.Segmentation.TargetTokens},
		{keySegMax, settings.Segmentation.MaxTokens},
		{keySegMin, settings.Segmentation.MinTokens},
		{keySegDrop, settings.Segmentation.SimilarityDropThreshold},
		{keySegStd, settings.Segmentation.StdMultiplier},
		{keySegRadius, settings.Segmentation.SmoothingWindowRadius},
		{keySegBatch, settings.Segmentation.EmbedBatchSize},
		{keyChunker, string(settings.Chunking.Chunker)},
		{keyChunkWindow, settings.Chunking.WindowRunes},
		{keyChunkOverlap, settings.Chunking.OverlapRunes},
		{keyFusionTopK, settings.Fusion.TopKForConfidence},
		{keyFusionMode, string(settings.Fusion.Strategy)},
		{keyFusionRRF, settings.Fusion.RRFConstant},
		{keySearchLimit, settings.Search.DefaultLimit},
		{keyTokenizer, string(settings.Tokenizer.Provider)},
		{keyTokenEncoding, settings.Tokenizer.Encoding},
		{keyRateRPS, settings.RateLimit.RequestsPerSecond},
		{keyRateBurst, settings.RateLimit.Burst},
		{keyRateRetries, settings.RateLimit.MaxRetries},
		{keyRateBatch, settings.RateLimit.BatchSize},
		{keyDataDir, settings.Storage.DataDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if err := s.setEmbedding(prefixEmbedding, settings.Embedding); err != nil {
		return err
	}
	if err := s.setEmbedding(prefixImageEmbedding, settings.ImageEmbedding); err != nil {
		return err
	}

	return s.configStore.Save()
}

// SetEmbeddingProvider configures the embedding provider of a modality.
func (s *SettingsService) SetEmbeddingProvider(
	modality domain.Modality, provider domain.AIProvider, model, apiKey string,
) error {
	if !modality.IsValid() {
		return fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidSettings, modality)
	}
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidSettings, provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidSettings, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	target := &settings.Embedding
	if modality == domain.ModalityImage {
		target = &settings.ImageEmbedding
	}

	target.Provider = provider

	// Set model - use provided or default
	if model != "" {
		target.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		target.Model = defaultModel
	}

	switch provider {
	case domain.AIProviderOllama:
		if target.BaseURL == "" {
			target.BaseURL = domain.DefaultOllamaURL
		}
	default:
		target.BaseURL = ""
	}

	target.APIKey = apiKey

	// Update vector dimensions based on model
	if d, ok := domain.EmbeddingDimensions()[target.Model]; ok {
		target.Dimensions = d
	}

	return s.Save(settings)
}

// Validate checks the stored settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (s *SettingsService) getEmbedding(prefix string, d domain.EmbeddingSettings) domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider:   s.getProvider(prefix+"provider", d.Provider),
		Model:      s.getString(prefix+"model", d.Model),
		BaseURL:    s.configStore.GetString(prefix + "base_url"),
		APIKey:     s.configStore.GetString(prefix + "api_key"),
		Dimensions: s.getInt(prefix+"dimensions", d.Dimensions),
	}
}

func (s *SettingsService) setEmbedding(prefix string, e domain.EmbeddingSettings) error {
	values := []struct {
		key string
		val any
	}{
		{prefix + "provider", e.Provider.String()},
		{prefix + "model", e.Model},
		{prefix + "base_url", e.BaseURL},
		{prefix + "dimensions", e.Dimensions},
	}
	if e.APIKey != "" {
		values = append(values, struct {
			key string
			val any
		}{prefix + "api_key", e.APIKey})
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.val); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt keeps an explicit zero; only a missing key takes the default.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getStrategy(defaultVal domain.FusionStrategy) domain.FusionStrategy {
	strategy := domain.FusionStrategy(s.configStore.GetString(keyFusionMode))
	if !strategy.IsValid() {
		return defaultVal
	}
	return strategy
}

func (s *SettingsService) getChunker(defaultVal domain.ChunkerType) domain.ChunkerType {
	chunker := domain.ChunkerType(s.configStore.GetString(keyChunker))
	if !chunker.IsValid() {
		return defaultVal
	}
	return chunker
}

func (s *SettingsService) getTokenizer(defaultVal domain.TokenizerProvider) domain.TokenizerProvider {
	switch p := domain.TokenizerProvider(s.configStore.GetString(keyTokenizer)); p {
	case domain.TokenizerHeuristic, domain.TokenizerTiktoken:
		return p
	default:
		return defaultVal
	}
}
