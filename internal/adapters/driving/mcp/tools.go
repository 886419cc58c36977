package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/fusion"
)

const defaultLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the search query to find documents"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Strategy   string   `json:"strategy,omitempty" jsonschema:"fusion strategy: weighted or rrf"`
	Modalities []string `json:"modalities,omitempty" jsonschema:"restrict the search to these modalities (text, image)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string   `json:"document_id"`
	ChunkID    string   `json:"chunk_id"`
	Title      string   `json:"title"`
	URI        string   `json:"uri"`
	Score      float64  `json:"score"`
	Modalities []string `json:"modalities"`
	Highlights []string `json:"highlights,omitempty"`
	Content    string   `json:"content,omitempty"`
}

// SegmentInput is the input schema for the segment tool.
type SegmentInput struct {
	Text         string `json:"text" jsonschema:"the text to split into semantic chunks"`
	TargetTokens int    `json:"target_tokens,omitempty" jsonschema:"flush a chunk once it reaches this many tokens"`
	MaxTokens    int    `json:"max_tokens,omitempty" jsonschema:"upper token bound per chunk"`
	MinTokens    int    `json:"min_tokens,omitempty" jsonschema:"chunks below this are merged into their predecessor"`
}

// SegmentOutput is the output schema for the segment tool.
type SegmentOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents one chunk.
type ChunkOutput struct {
	Position  int    `json:"position"`
	Tokens    int    `json:"tokens"`
	Oversized bool   `json:"oversized,omitempty"`
	Content   string `json:"content"`
}

// FuseInput is the input schema for the fuse tool.
type FuseInput struct {
	Primary   []fusion.ScoredItem `json:"primary" jsonschema:"ranked results of the primary modality"`
	Secondary []fusion.ScoredItem `json:"secondary" jsonschema:"ranked results of the secondary modality"`
	Strategy  string              `json:"strategy,omitempty" jsonschema:"fusion strategy: weighted (default) or rrf"`
	TopK      int                 `json:"top_k,omitempty" jsonschema:"scores averaged into each list's confidence (default 5)"`
	Limit     int                 `json:"limit,omitempty" jsonschema:"maximum number of results, 0 for no limit"`
}

// FuseOutput is the output schema for the fuse tool.
type FuseOutput struct {
	Results []fusion.Result `json:"results"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	URI      string `json:"uri" jsonschema:"a stable identifier for the document, such as a path or URL"`
	Content  string `json:"content" jsonschema:"the document text"`
	MIMEType string `json:"mime_type,omitempty" jsonschema:"content type (default text/plain)"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Chunks     int    `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search indexed documents across text and image modalities",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fuse",
		Description: "Fuse two ranked result lists with confidence weighting or reciprocal rank fusion",
	}, s.handleFuse)

	if s.ports.Segment != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "segment",
			Description: "Split text into semantically coherent chunks",
		}, s.handleSegment)
	}

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Index a text document for search",
		}, s.handleIngest)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	opts := domain.SearchOptions{
		Limit:    limit,
		Strategy: domain.FusionStrategy(input.Strategy),
	}
	for _, m := range input.Modalities {
		opts.Modalities = append(opts.Modalities, domain.Modality(m))
	}

	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		modalities := make([]string, len(results[i].Modalities))
		for j, m := range results[i].Modalities {
			modalities[j] = m.String()
		}
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].Document.ID,
			ChunkID:    results[i].Chunk.ID,
			Title:      results[i].Document.Title,
			URI:        results[i].Document.URI,
			Score:      results[i].Score,
			Modalities: modalities,
			Highlights: results[i].Highlights,
			Content:    results[i].Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleSegment handles the segment tool invocation.
func (s *Server) handleSegment(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SegmentInput,
) (*mcp.CallToolResult, SegmentOutput, error) {
	if s.ports.Segment == nil {
		return nil, SegmentOutput{}, errSegmentDisabled
	}

	var opts driving.SegmentOptions
	if input.TargetTokens > 0 || input.MaxTokens > 0 || input.MinTokens > 0 {
		settings := domain.DefaultSegmentationSettings()
		if input.TargetTokens > 0 {
			settings.TargetTokens = input.TargetTokens
		}
		if input.MaxTokens > 0 {
			settings.MaxTokens = input.MaxTokens
		}
		if input.MinTokens > 0 {
			settings.MinTokens = input.MinTokens
		}
		if err := settings.Validate(); err != nil {
			return nil, SegmentOutput{}, err
		}
		opts.Settings = &settings
	}

	chunks, err := s.ports.Segment.Segment(ctx, input.Text, opts)
	if err != nil {
		return nil, SegmentOutput{}, err
	}

	output := SegmentOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = ChunkOutput{
			Position:  chunks[i].Position,
			Tokens:    chunks[i].Tokens,
			Oversized: chunks[i].Oversized,
			Content:   chunks[i].Content,
		}
	}
	return nil, output, nil
}

// handleFuse handles the fuse tool invocation.
func (s *Server) handleFuse(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FuseInput,
) (*mcp.CallToolResult, FuseOutput, error) {
	settings := domain.DefaultFusionSettings()
	if input.Strategy != "" {
		settings.Strategy = domain.FusionStrategy(input.Strategy)
	}
	if input.TopK > 0 {
		settings.TopKForConfidence = input.TopK
	}

	results, err := fusion.Fuse(input.Primary, input.Secondary, settings, input.Limit)
	if err != nil {
		return nil, FuseOutput{}, err
	}
	if results == nil {
		results = []fusion.Result{}
	}
	return nil, FuseOutput{Results: results}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, errIngestDisabled
	}

	if input.URI == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: uri is required", domain.ErrInvalidInput)
	}

	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "text/plain"
	}

	result, err := s.ports.Ingest.IngestRaw(ctx, &domain.RawDocument{
		URI:      input.URI,
		MIMEType: mimeType,
		Content:  []byte(input.Content),
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID: result.Document.ID,
		Title:      result.Document.Title,
		Chunks:     result.Chunks,
	}, nil
}
