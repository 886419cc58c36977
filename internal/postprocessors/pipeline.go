// Package postprocessors turns normalised documents into embedded chunks.
//
// A pipeline is an ordered list of stages. The first stage (semantic or
// fixed) cuts the document into chunks; later stages (embed) enrich them.
package postprocessors

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs its stages in insertion order, feeding each stage the
// chunks returned by the previous one.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline returns a pipeline over stages.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc. The first stage starts from nil chunks. A failing
// or cancelled stage aborts the run and nothing partial is returned.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		chunks = out
		logger.Debug("Processor %s on %s: %d chunks in %s", stage.Name(), doc.URI, len(chunks), time.Since(start))
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Len reports the number of stages.
func (p *Pipeline) Len() int { return len(p.stages) }

// Names lists stage names in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		out = append(out, stage.Name())
	}
	return out
}
