package postprocessors

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/embed"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/semantic"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// stubEmbedder returns a constant vector per text.
type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int              { return 2 }
func (stubEmbedder) ModelName() string            { return "stub" }
func (stubEmbedder) Ping(_ context.Context) error { return nil }
func (stubEmbedder) Close() error                 { return nil }

type stubTokens struct{}

func (stubTokens) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (stubTokens) Name() string { return "words" }

func testDeps() Dependencies {
	return Dependencies{
		Embedder: stubEmbedder{},
		Tokens:   stubTokens{},
	}
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name, _ := cfg["name"].(string)
		return &mockProcessor{name: name}, nil
	})

	assert.True(t, r.Has("test"))
	proc, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	_, err := NewRegistry().Build("stemmer", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, testDeps())

	assert.Equal(t, []string{"embed", "semantic"}, r.Names())
}

func TestRegistry_BuildPipeline(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, testDeps())

	p, err := r.BuildPipeline(DefaultStages()...)
	require.NoError(t, err)
	assert.Equal(t, []string{"semantic", "embed"}, p.Names())

	chunks, err := p.Process(context.Background(), &domain.Document{ID: "d", Content: "One sentence only."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []float32{1, 0}, chunks[0].Embedding)
	assert.Equal(t, "d", chunks[0].DocumentID)

	_, err = r.BuildPipeline(Stage{Name: "semantic"}, Stage{Name: "unknown"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestBuildSemantic_Config(t *testing.T) {
	proc, err := buildSemantic(testDeps(), map[string]any{
		"target_tokens":    int64(50),
		"max_tokens":       float64(80),
		"min_tokens":       10,
		"drop_threshold":   0.4,
		"std_multiplier":   int64(2),
		"smoothing_radius": int64(0),
		"splitter":         "regex",
	})
	require.NoError(t, err)

	seg := proc.(*semantic.Processor).Segmenter()
	s := seg.Settings()
	assert.Equal(t, 50, s.TargetTokens)
	assert.Equal(t, 80, s.MaxTokens)
	assert.Equal(t, 10, s.MinTokens)
	assert.InDelta(t, 0.4, s.SimilarityDropThreshold, 1e-9)
	assert.InDelta(t, 2.0, s.StdMultiplier, 1e-9)
	assert.Equal(t, 0, s.SmoothingWindowRadius)
	assert.Equal(t, "regex", seg.SplitterName())
}

func TestBuildSemantic_DetectedSplitter(t *testing.T) {
	deps := testDeps()
	deps.Splitter = segment.RegexSplitter{}

	proc, err := buildSemantic(deps, nil)
	require.NoError(t, err)
	assert.Equal(t, "regex", proc.(*semantic.Processor).Segmenter().SplitterName())

	proc, err = buildSemantic(deps, map[string]any{"splitter": "unicode"})
	require.NoError(t, err)
	assert.Equal(t, "unicode", proc.(*semantic.Processor).Segmenter().SplitterName())
}

func TestBuildSemantic_Errors(t *testing.T) {
	t.Run("invalid bounds", func(t *testing.T) {
		_, err := buildSemantic(testDeps(), map[string]any{"min_tokens": 5000})
		assert.ErrorIs(t, err, domain.ErrInvalidSettings)
	})

	t.Run("unknown splitter", func(t *testing.T) {
		_, err := buildSemantic(testDeps(), map[string]any{"splitter": "nltk"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("no embedder", func(t *testing.T) {
		_, err := buildSemantic(Dependencies{Tokens: stubTokens{}}, nil)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})

	t.Run("no tokens", func(t *testing.T) {
		_, err := buildSemantic(Dependencies{Embedder: stubEmbedder{}}, nil)
		assert.Error(t, err)
	})
}

func TestBuildFixed(t *testing.T) {
	deps := testDeps()
	deps.Chunking = domain.ChunkingSettings{Chunker: domain.ChunkerFixed, WindowRunes: 8, OverlapRunes: 0}

	proc, err := buildFixed(deps, map[string]any{"window_runes": int64(10)})
	require.NoError(t, err)
	assert.Equal(t, chunker.Name, proc.Name())

	chunks, err := proc.Process(context.Background(), &domain.Document{ID: "d", Content: "aaaa bbbb cccc dddd"}, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa bbbb", chunks[0].Content)
	assert.Equal(t, "cccc dddd", chunks[1].Content)

	_, err = buildFixed(Dependencies{}, nil)
	assert.Error(t, err)
}

func TestStagesFor(t *testing.T) {
	fixed := StagesFor(domain.ChunkingSettings{Chunker: domain.ChunkerFixed})
	assert.Equal(t, []Stage{{Name: chunker.Name}, {Name: embed.Name}}, fixed)
	assert.Equal(t, DefaultStages(), StagesFor(domain.ChunkingSettings{Chunker: domain.ChunkerSemantic}))

	r := NewRegistry()
	RegisterDefaults(r, testDeps())
	pipeline, err := r.BuildPipeline(fixed...)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed", "embed"}, pipeline.Names())
}

func TestBuildEmbed_RequiresEmbedder(t *testing.T) {
	_, err := buildEmbed(Dependencies{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestGetIntFromConfig(t *testing.T) {
	cfg := map[string]any{"a": 1, "b": int64(2), "c": 3.0, "d": "4"}

	assert.Equal(t, 1, getIntFromConfig(cfg, "a"))
	assert.Equal(t, 2, getIntFromConfig(cfg, "b"))
	assert.Equal(t, 3, getIntFromConfig(cfg, "c"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "d"))
	assert.Equal(t, 0, getIntFromConfig(nil, "a"))
}
