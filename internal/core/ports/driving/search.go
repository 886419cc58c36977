package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides fused multi-modal search to external actors.
type SearchService interface {
	// Search embeds the query per modality, searches each modality and
	// fuses the ranked lists into one.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
