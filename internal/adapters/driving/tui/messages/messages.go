// Package messages defines the Bubbletea messages exchanged by TUI views.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchCompleted carries fused search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// DocumentsLoaded carries the indexed document list.
type DocumentsLoaded struct {
	Documents []domain.Document
	Err       error
}

// DocumentSelected asks the app to open a document's chunks. ChunkID, when
// set, is scrolled into view.
type DocumentSelected struct {
	DocumentID string
	ChunkID    string
}

// ChunksLoaded carries a document and its chunks in position order.
type ChunksLoaded struct {
	Document *domain.Document
	Chunks   []domain.Chunk
	Err      error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the query input and fused results.
	ViewSearch ViewType = iota
	// ViewDocuments lists every indexed document.
	ViewDocuments
	// ViewChunks shows the chunks of one document.
	ViewChunks
	// ViewHelp lists keybindings.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewChunks:
		return "chunks"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
