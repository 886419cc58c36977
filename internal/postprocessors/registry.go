package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc constructs a stage from its untyped config table, as decoded
// from the config file.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Stage is one entry of a pipeline definition: a registered builder name
// plus overrides for that builder.
type Stage struct {
	Name   string
	Config map[string]any
}

// Registry resolves stage names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register binds name to builder, replacing any earlier binding. The name
// should equal the Name() of the stages the builder returns.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build constructs the stage registered as name. Unknown names wrap
// domain.ErrUnsupportedType.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: processor %q", domain.ErrUnsupportedType, name)
	}
	return builder(cfg)
}

// BuildPipeline constructs every stage and chains them in order.
func (r *Registry) BuildPipeline(stages ...Stage) (*Pipeline, error) {
	built := make([]driven.PostProcessor, 0, len(stages))
	for _, stage := range stages {
		processor, err := r.Build(stage.Name, stage.Config)
		if err != nil {
			return nil, err
		}
		built = append(built, processor)
	}
	return NewPipeline(built...), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names lists registered builder names alphabetically.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
