// Package tui provides an interactive terminal search interface. It is a
// driving adapter over the search and document ports.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Search runs fused queries. Required.
	Search driving.SearchService

	// Document backs the document list and chunk views. Optional; without
	// it those views report an error.
	Document driving.DocumentService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
