package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchStrategy   string
	searchModalities []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Embeds the query in every configured modality, searches each vector index
and fuses the ranked lists. Text is the primary modality; image results
contribute according to their confidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchStrategy, "strategy", "", "fusion strategy: weighted or rrf")
	searchCmd.Flags().StringSliceVar(&searchModalities, "modality", nil, "restrict to modalities (text, image)")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the JSON form of a search result.
type searchHit struct {
	DocumentID string   `json:"document_id"`
	ChunkID    string   `json:"chunk_id"`
	Title      string   `json:"title"`
	URI        string   `json:"uri"`
	Score      float64  `json:"score"`
	Modalities []string `json:"modalities"`
	Position   int      `json:"position"`
	Content    string   `json:"content"`
	Highlights []string `json:"highlights,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Limit:    searchLimit,
		Strategy: domain.FusionStrategy(searchStrategy),
	}
	for _, m := range searchModalities {
		opts.Modalities = append(opts.Modalities, domain.Modality(strings.ToLower(m)))
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	results, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	hits := make([]searchHit, 0, len(results))
	for i := range results {
		r := &results[i]
		modalities := make([]string, len(r.Modalities))
		for j, m := range r.Modalities {
			modalities[j] = m.String()
		}
		hits = append(hits, searchHit{
			DocumentID: r.Document.ID,
			ChunkID:    r.Chunk.ID,
			Title:      r.Document.Title,
			URI:        r.Document.URI,
			Score:      r.Score,
			Modalities: modalities,
			Position:   r.Chunk.Position,
			Content:    r.Chunk.Content,
			Highlights: r.Highlights,
		})
	}

	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	st := newStyles()
	width := outputWidth(cmd.OutOrStdout()) - 6

	cmd.Println(st.Title.Render("Results:"))
	cmd.Println()
	for i := range results {
		r := &results[i]
		title := r.Document.Title
		if title == "" {
			title = r.Document.ID
		}

		// Format: [N] Title (Score) text+image
		cmd.Printf("  [%d] %s %s %s\n", i+1,
			st.Title.Render(title),
			st.Score.Render(fmt.Sprintf("(%.3f)", r.Score)),
			st.Muted.Render(joinModalities(r.Modalities)))
		cmd.Printf("      %s\n", st.Muted.Render(truncate(r.Document.URI, width)))

		snippet := firstLine(r.Chunk.Content)
		if len(r.Highlights) > 0 {
			snippet = r.Highlights[0]
		}
		if snippet != "" {
			cmd.Printf("      %s\n", st.Highlight.Render(truncate(snippet, width)))
		}
		cmd.Println()
	}
}

func joinModalities(ms []domain.Modality) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.String()
	}
	return strings.Join(parts, "+")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
