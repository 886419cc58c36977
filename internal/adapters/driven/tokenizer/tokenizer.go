package tokenizer

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/tokenizer/heuristic"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/tokenizer/tiktoken"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// New returns the estimator named in settings. If the tiktoken encoding
// cannot be loaded (it is fetched on first use) the heuristic is used.
func New(cfg domain.TokenizerSettings) (driven.TokenEstimator, error) {
	switch cfg.Provider {
	case domain.TokenizerHeuristic, "":
		return heuristic.New(), nil
	case domain.TokenizerTiktoken:
		est, err := tiktoken.New(cfg.Encoding)
		if err != nil {
			logger.Warn("tiktoken unavailable, using heuristic token estimates: %v", err)
			return heuristic.New(), nil
		}
		return est, nil
	default:
		return nil, fmt.Errorf("tokenizer: %w: %q", domain.ErrUnsupportedType, cfg.Provider)
	}
}
