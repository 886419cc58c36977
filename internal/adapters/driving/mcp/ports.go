package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides fused search.
	Search driving.SearchService

	// Segment splits text into chunks. Optional.
	Segment driving.SegmentService

	// Ingest indexes text supplied by the assistant. Optional.
	Ingest driving.IngestService

	// Document exposes indexed documents as resources. Optional.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
