package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/embed"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/semantic"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Dependencies are the collaborators built-in processors need.
type Dependencies struct {
	// Embedder embeds sentences for boundary detection and chunks for search.
	Embedder driven.EmbeddingService

	// ImageEmbedder is optional; when set chunks get image-modality vectors.
	ImageEmbedder driven.EmbeddingService

	// Tokens estimates chunk sizes.
	Tokens driven.TokenEstimator

	// Segmentation is the base segmentation config; stage config overrides it.
	Segmentation domain.SegmentationSettings

	// Chunking is the base fixed-window config.
	Chunking domain.ChunkingSettings

	// Splitter is the sentence strategy detected at startup. It serves the
	// "auto" splitter config; nil probes again.
	Splitter segment.SentenceSplitter
}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry, deps Dependencies) {
	r.Register(semantic.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildSemantic(deps, cfg)
	})
	r.Register(chunker.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildFixed(deps, cfg)
	})
	r.Register(embed.Name, func(cfg map[string]any) (driven.PostProcessor, error) {
		return buildEmbed(deps, cfg)
	})
}

// DefaultStages is the standard ingest pipeline: segment, then embed.
func DefaultStages() []Stage {
	return []Stage{{Name: semantic.Name}, {Name: embed.Name}}
}

// StagesFor returns the ingest pipeline for the configured chunker.
func StagesFor(c domain.ChunkingSettings) []Stage {
	if c.Chunker == domain.ChunkerFixed {
		return []Stage{{Name: chunker.Name}, {Name: embed.Name}}
	}
	return DefaultStages()
}

// buildFixed creates a fixed-window processor. Supported config keys:
//   - window_runes, overlap_runes, max_tokens (int)
func buildFixed(deps Dependencies, cfg map[string]any) (driven.PostProcessor, error) {
	window, overlap := deps.Chunking.WindowRunes, deps.Chunking.OverlapRunes
	if v := getIntFromConfig(cfg, "window_runes"); v > 0 {
		window = v
	}
	if v, ok := lookupInt(cfg, "overlap_runes"); ok {
		overlap = v
	}
	maxTokens := deps.Segmentation.MaxTokens
	if v := getIntFromConfig(cfg, "max_tokens"); v > 0 {
		maxTokens = v
	}
	return chunker.New(deps.Tokens,
		chunker.WithWindow(window),
		chunker.WithOverlap(overlap),
		chunker.WithMaxTokens(maxTokens),
	)
}

// buildSemantic creates a semantic processor from generic config.
// Supported config keys:
//   - target_tokens, max_tokens, min_tokens (int)
//   - drop_threshold, std_multiplier (float)
//   - smoothing_radius, embed_batch_size (int)
//   - splitter (string): auto, unicode or regex
func buildSemantic(deps Dependencies, cfg map[string]any) (driven.PostProcessor, error) {
	s := deps.Segmentation
	if s == (domain.SegmentationSettings{}) {
		s = domain.DefaultSegmentationSettings()
	}
	if v := getIntFromConfig(cfg, "target_tokens"); v > 0 {
		s.TargetTokens = v
	}
	if v := getIntFromConfig(cfg, "max_tokens"); v > 0 {
		s.MaxTokens = v
	}
	if v, ok := lookupInt(cfg, "min_tokens"); ok {
		s.MinTokens = v
	}
	if v, ok := lookupFloat(cfg, "drop_threshold"); ok {
		s.SimilarityDropThreshold = v
	}
	if v, ok := lookupFloat(cfg, "std_multiplier"); ok {
		s.StdMultiplier = v
	}
	if v, ok := lookupInt(cfg, "smoothing_radius"); ok {
		s.SmoothingWindowRadius = v
	}
	if v := getIntFromConfig(cfg, "embed_batch_size"); v > 0 {
		s.EmbedBatchSize = v
	}

	splitterName, _ := cfg["splitter"].(string)
	splitter, err := segment.ResolveSplitter(splitterName, deps.Splitter)
	if err != nil {
		return nil, err
	}

	if deps.Embedder == nil {
		return nil, fmt.Errorf("%s: %w", semantic.Name, domain.ErrEmbeddingUnavailable)
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("%s: token estimator is required", semantic.Name)
	}
	return semantic.New(deps.Embedder, deps.Tokens, segment.WithSettings(s), segment.WithSplitter(splitter))
}

// buildEmbed creates an embed processor. Supported config keys:
//   - batch_size (int): chunks per embedding request (default: 32)
func buildEmbed(deps Dependencies, cfg map[string]any) (driven.PostProcessor, error) {
	opts := []embed.Option{embed.WithBatchSize(getIntFromConfig(cfg, "batch_size"))}
	if deps.ImageEmbedder != nil {
		opts = append(opts, embed.WithImageEmbedder(deps.ImageEmbedder))
	}
	return embed.New(deps.Embedder, opts...)
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	v, _ := lookupInt(cfg, key)
	return v
}

func lookupInt(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func lookupFloat(cfg map[string]any, key string) (float64, bool) {
	switch v := cfg[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
