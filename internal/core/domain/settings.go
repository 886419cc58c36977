package domain

import "fmt"

const unknownDescription = "Unknown"

// SegmentationSettings tunes semantic segmentation.
// The boundary-detection values are heuristic defaults; they may be
// recalibrated per corpus.
type SegmentationSettings struct {
	// TargetTokens flushes the accumulation buffer once reached.
	TargetTokens int

	// MaxTokens is the upper token bound per chunk.
	MaxTokens int

	// MinTokens is the lower bound below which a chunk is merged into its predecessor.
	MinTokens int

	// SimilarityDropThreshold is the smoothed similarity drop that marks a topic shift.
	SimilarityDropThreshold float64

	// StdMultiplier is k in the dynamic threshold mean - k*std.
	StdMultiplier float64

	// SmoothingWindowRadius is the moving-average radius over similarities.
	SmoothingWindowRadius int

	// EmbedBatchSize bounds the number of sentences per embedding request.
	EmbedBatchSize int
}

// DefaultSegmentationSettings returns the default segmentation configuration.
func DefaultSegmentationSettings() SegmentationSettings {
	return SegmentationSettings{
		TargetTokens:            1200,
		MaxTokens:               1800,
		MinTokens:               400,
		SimilarityDropThreshold: 0.25,
		StdMultiplier:           1,
		SmoothingWindowRadius:   2,
		EmbedBatchSize:          64,
	}
}

// Validate checks the token bounds are ordered and positive.
func (s SegmentationSettings) Validate() error {
	switch {
	case s.MinTokens < 0:
		return fmt.Errorf("%w: min_tokens must not be negative", ErrInvalidSettings)
	case s.TargetTokens <= 0 || s.MaxTokens <= 0:
		return fmt.Errorf("%w: target_tokens and max_tokens must be positive", ErrInvalidSettings)
	case s.MinTokens > s.TargetTokens:
		return fmt.Errorf("%w: min_tokens %d exceeds target_tokens %d", ErrInvalidSettings, s.MinTokens, s.TargetTokens)
	case s.TargetTokens > s.MaxTokens:
		return fmt.Errorf("%w: target_tokens %d exceeds max_tokens %d", ErrInvalidSettings, s.TargetTokens, s.MaxTokens)
	case s.SmoothingWindowRadius < 0:
		return fmt.Errorf("%w: smoothing_window_radius must not be negative", ErrInvalidSettings)
	case s.StdMultiplier < 0:
		return fmt.Errorf("%w: std_multiplier must not be negative", ErrInvalidSettings)
	case s.EmbedBatchSize <= 0:
		return fmt.Errorf("%w: embed_batch_size must be positive", ErrInvalidSettings)
	}
	return nil
}

// FusionStrategy selects how per-modality result lists are combined.
type FusionStrategy string

// Available fusion strategies.
const (
	// FusionWeighted min-max normalises each modality and weights it by a
	// softmax over top-K confidences.
	FusionWeighted FusionStrategy = "weighted"

	// FusionRRF uses reciprocal rank fusion and ignores raw scores.
	FusionRRF FusionStrategy = "rrf"
)

// IsValid returns true if the strategy is recognised.
func (f FusionStrategy) IsValid() bool {
	return f == FusionWeighted || f == FusionRRF
}

// Description returns a human-readable description of the strategy.
func (f FusionStrategy) Description() string {
	switch f {
	case FusionWeighted:
		return "Confidence-weighted score fusion"
	case FusionRRF:
		return "Reciprocal rank fusion"
	default:
		return unknownDescription
	}
}

// FusionSettings tunes query-time result fusion.
type FusionSettings struct {
	// TopKForConfidence is the number of top normalised scores averaged
	// into a modality's confidence.
	TopKForConfidence int

	// Strategy is the fusion strategy.
	Strategy FusionStrategy

	// RRFConstant is k in 1/(k+rank) for reciprocal rank fusion.
	RRFConstant int
}

// DefaultFusionSettings returns the default fusion configuration.
func DefaultFusionSettings() FusionSettings {
	return FusionSettings{
		TopKForConfidence: 5,
		Strategy:          FusionWeighted,
		RRFConstant:       60,
	}
}

// Validate checks the fusion settings.
func (f FusionSettings) Validate() error {
	if f.TopKForConfidence <= 0 {
		return fmt.Errorf("%w: top_k_for_confidence must be positive", ErrInvalidSettings)
	}
	if !f.Strategy.IsValid() {
		return fmt.Errorf("%w: unknown fusion strategy %q", ErrInvalidSettings, f.Strategy)
	}
	if f.Strategy == FusionRRF && f.RRFConstant <= 0 {
		return fmt.Errorf("%w: rrf_constant must be positive", ErrInvalidSettings)
	}
	return nil
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderHashing is the offline feature-hashing embedder.
	AIProviderHashing AIProvider = "hashing"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// IsLocal returns true if the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHashing
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// DefaultOllamaURL is the base URL of a local Ollama instance.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultEmbeddingModels returns the default model per provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderHashing: "hashing",
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider. Empty disables the modality.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// TokenizerProvider identifies a token estimator implementation.
type TokenizerProvider string

// Available tokenizers.
const (
	// TokenizerHeuristic estimates one token per four runes.
	TokenizerHeuristic TokenizerProvider = "heuristic"

	// TokenizerTiktoken counts BPE tokens with a tiktoken encoding.
	TokenizerTiktoken TokenizerProvider = "tiktoken"
)

// TokenizerSettings holds token estimator configuration.
type TokenizerSettings struct {
	// Provider selects the estimator.
	Provider TokenizerProvider

	// Encoding is the tiktoken encoding or model name (default cl100k_base).
	Encoding string
}

// RateLimitSettings bounds calls to embedding providers.
type RateLimitSettings struct {
	// RequestsPerSecond is the sustained request rate. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the maximum burst size.
	Burst int

	// MaxRetries is the number of retries for a failed request.
	MaxRetries int

	// BatchSize is the maximum number of texts per request.
	BatchSize int
}

// ChunkerType selects the ingest-time chunking stage.
type ChunkerType string

// Available chunkers.
const (
	// ChunkerSemantic places boundaries at topic shifts.
	ChunkerSemantic ChunkerType = "semantic"

	// ChunkerFixed cuts overlapping windows of a fixed size. It needs no
	// sentence embeddings.
	ChunkerFixed ChunkerType = "fixed"
)

// IsValid returns true if the chunker is recognised.
func (c ChunkerType) IsValid() bool {
	return c == ChunkerSemantic || c == ChunkerFixed
}

// ChunkingSettings selects and tunes the ingest chunking stage.
type ChunkingSettings struct {
	// Chunker is the chunking stage.
	Chunker ChunkerType

	// WindowRunes is the window size of the fixed chunker.
	WindowRunes int

	// OverlapRunes is the overlap between fixed windows.
	OverlapRunes int
}

// Validate checks the chunking settings.
func (c ChunkingSettings) Validate() error {
	switch {
	case !c.Chunker.IsValid():
		return fmt.Errorf("%w: unknown chunker %q", ErrInvalidSettings, c.Chunker)
	case c.Chunker == ChunkerFixed && c.WindowRunes <= 0:
		return fmt.Errorf("%w: window_runes must be positive", ErrInvalidSettings)
	case c.OverlapRunes < 0 || (c.Chunker == ChunkerFixed && c.OverlapRunes >= c.WindowRunes):
		return fmt.Errorf("%w: overlap_runes must be in [0, window_runes)", ErrInvalidSettings)
	}
	return nil
}

// StorageSettings holds local storage configuration.
type StorageSettings struct {
	// DataDir is the directory holding the metadata database.
	DataDir string
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// DefaultLimit is used when a query does not set a limit.
	DefaultLimit int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Segmentation   SegmentationSettings
	Chunking       ChunkingSettings
	Fusion         FusionSettings
	Search         SearchSettings
	Embedding      EmbeddingSettings
	ImageEmbedding EmbeddingSettings
	Tokenizer      TokenizerSettings
	RateLimit      RateLimitSettings
	Storage        StorageSettings
}

// DefaultAppSettings returns settings that work offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Segmentation: DefaultSegmentationSettings(),
		Chunking: ChunkingSettings{
			Chunker:      ChunkerSemantic,
			WindowRunes:  4000,
			OverlapRunes: 400,
		},
		Fusion: DefaultFusionSettings(),
		Search: SearchSettings{DefaultLimit: 10},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderHashing,
			Dimensions: 256,
		},
		Tokenizer: TokenizerSettings{Provider: TokenizerHeuristic},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: 5,
			Burst:             10,
			MaxRetries:        3,
			BatchSize:         64,
		},
	}
}

// Validate checks every section of the settings.
func (s AppSettings) Validate() error {
	if err := s.Segmentation.Validate(); err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	if err := s.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	if err := s.Fusion.Validate(); err != nil {
		return fmt.Errorf("fusion: %w", err)
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("embedding: %w: provider %q is not configured", ErrInvalidSettings, s.Embedding.Provider)
	}
	if s.ImageEmbedding.Provider != "" && !s.ImageEmbedding.IsConfigured() {
		return fmt.Errorf("image_embedding: %w: provider %q is not configured", ErrInvalidSettings, s.ImageEmbedding.Provider)
	}
	switch s.Tokenizer.Provider {
	case TokenizerHeuristic, TokenizerTiktoken:
	default:
		return fmt.Errorf("tokenizer: %w: unknown provider %q", ErrInvalidSettings, s.Tokenizer.Provider)
	}
	return nil
}

// EmbeddingDimensions returns the default vector size of known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"hashing":                256,
	}
}
