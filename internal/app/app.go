// Package app wires adapters and services into a running application.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/segment"
)

// Options controls how the application is assembled.
type Options struct {
	// ConfigDir holds config.toml. Empty means ~/.sercha-rag.
	ConfigDir string

	// InMemory keeps settings and documents in memory only.
	InMemory bool
}

// App holds the wired services. Close releases every adapter.
type App struct {
	Settings        domain.AppSettings
	ConfigStore     driven.ConfigStore
	SettingsService *services.SettingsService
	Search          *services.SearchService
	Ingest          *services.IngestService
	Documents       *services.DocumentService
	Segments        *services.SegmentService
	Validator       driven.AIConfigValidator
	Normalisers     *normalisers.Registry
	Embedders       map[domain.Modality]driven.EmbeddingService
	Warnings        []string

	closers []func() error
}

// New loads settings, connects adapters, rebuilds the vector indexes from
// the document store and returns the assembled services.
func New(ctx context.Context, opts Options) (a *App, err error) {
	a = &App{Validator: ai.NewConfigValidator()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	logger.Section("Startup")
	if err := a.loadSettings(opts); err != nil {
		return nil, err
	}

	docStore, err := a.openStore(opts)
	if err != nil {
		return nil, err
	}

	embedders := ai.Initialise(ctx, &a.Settings)
	a.closers = append(a.closers, func() error { embedders.Close(); return nil })
	a.Embedders = embedders.Embedders
	a.Warnings = append(a.Warnings, embedders.Warnings...)

	tokens, err := tokenizer.New(a.Settings.Tokenizer)
	if err != nil {
		return nil, err
	}
	logger.Debug("Token estimator: %s", tokens.Name())

	indexes := make(map[domain.Modality]driven.VectorIndex, len(a.Embedders))
	for modality, emb := range a.Embedders {
		index := memory.NewVectorIndex(emb.Dimensions())
		indexes[modality] = index
		a.closers = append(a.closers, index.Close)
		logger.Debug("%s embeddings: %s (%d dims)", modality, emb.ModelName(), emb.Dimensions())
	}

	splitter := segment.DetectSplitter()
	logger.Debug("Sentence splitter: %s", splitter.Name())

	pipeline, err := buildPipeline(a.Embedders, tokens, splitter, a.Settings)
	if err != nil {
		return nil, err
	}

	a.Normalisers = normalisers.NewRegistry()
	normalisers.RegisterDefaults(a.Normalisers)

	a.Ingest = services.NewIngestService(a.Normalisers, pipeline, docStore, indexes)
	a.Search = services.NewSearchService(docStore, a.Embedders, indexes, a.Settings.Fusion, a.Settings.Search.DefaultLimit, splitter)
	a.Documents = services.NewDocumentService(docStore)
	a.Segments = services.NewSegmentService(a.Embedders[domain.ModalityText], tokens, a.Settings.Segmentation, splitter)

	start := time.Now()
	n, err := a.Ingest.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	logger.Elapsed(fmt.Sprintf("reload %d chunks", n), start)

	return a, nil
}

// Close releases adapters in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) loadSettings(opts Options) error {
	if opts.InMemory {
		a.ConfigStore = memory.NewConfigStore(nil)
	} else {
		store, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.ConfigStore = store
		logger.Debug("Config: %s", store.Path())
	}

	a.SettingsService = services.NewSettingsService(a.ConfigStore)
	settings, err := a.SettingsService.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%s: %w", a.ConfigStore.Path(), err)
	}
	a.Settings = *settings
	return nil
}

func (a *App) openStore(opts Options) (driven.DocumentStore, error) {
	if opts.InMemory {
		return memory.NewDocumentStore(), nil
	}

	dataDir := a.Settings.Storage.DataDir
	if dataDir == "" && opts.ConfigDir != "" {
		dataDir = filepath.Join(opts.ConfigDir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	logger.Debug("Database: %s", store.Path())
	return store.DocumentStore(), nil
}

// buildPipeline assembles the chunk-then-embed pipeline for the configured chunker.
func buildPipeline(
	embedders map[domain.Modality]driven.EmbeddingService,
	tokens driven.TokenEstimator,
	splitter segment.SentenceSplitter,
	settings domain.AppSettings,
) (*postprocessors.Pipeline, error) {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, postprocessors.Dependencies{
		Embedder:      embedders[domain.ModalityText],
		ImageEmbedder: embedders[domain.ModalityImage],
		Tokens:        tokens,
		Segmentation:  settings.Segmentation,
		Chunking:      settings.Chunking,
		Splitter:      splitter,
	})
	pipeline, err := registry.BuildPipeline(postprocessors.StagesFor(settings.Chunking)...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	logger.Debug("Pipeline: %v", pipeline.Names())
	return pipeline, nil
}
