package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/fusion"
)

var (
	fuseLimit    int
	fuseTopK     int
	fuseStrategy string
	fuseRRF      int
	fuseJSON     bool
)

var fuseCmd = &cobra.Command{
	Use:   "fuse [primary.json] [secondary.json]",
	Short: "Fuse two ranked result lists",
	Long: `Combines two ranked lists of {"id", "score", "metadata"} objects.

The weighted strategy min-max normalises each list, derives a confidence from
its top scores and weights the lists by a softmax over the confidences. The
rrf strategy uses reciprocal rank fusion and ignores raw scores. Metadata is
taken from the primary list when an ID appears in both.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runFuse,
}

func init() {
	d := domain.DefaultFusionSettings()
	fuseCmd.Flags().IntVarP(&fuseLimit, "limit", "n", 10, "maximum number of results (0 = no limit)")
	fuseCmd.Flags().IntVar(&fuseTopK, "top-k", d.TopKForConfidence, "scores averaged into each list's confidence")
	fuseCmd.Flags().StringVar(&fuseStrategy, "strategy", string(d.Strategy), "fusion strategy: weighted or rrf")
	fuseCmd.Flags().IntVar(&fuseRRF, "rrf-k", d.RRFConstant, "k in 1/(k+rank) for rrf")
	fuseCmd.Flags().BoolVar(&fuseJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(fuseCmd)
}

func runFuse(cmd *cobra.Command, args []string) error {
	primary, err := readScoredItems(args[0])
	if err != nil {
		return err
	}
	secondary, err := readScoredItems(args[1])
	if err != nil {
		return err
	}

	settings := domain.FusionSettings{
		TopKForConfidence: fuseTopK,
		Strategy:          domain.FusionStrategy(fuseStrategy),
		RRFConstant:       fuseRRF,
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	results, err := fusion.Fuse(primary, secondary, settings, fuseLimit)
	if err != nil {
		return err
	}

	if fuseJSON {
		if results == nil {
			results = []fusion.Result{}
		}
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results.")
		return nil
	}
	st := newStyles()
	for i, r := range results {
		cmd.Printf("  [%d] %s %s\n", i+1, r.ID, st.Score.Render(fmt.Sprintf("(%.4f)", r.Score)))
	}
	return nil
}

func readScoredItems(path string) ([]fusion.ScoredItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var items []fusion.ScoredItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}
