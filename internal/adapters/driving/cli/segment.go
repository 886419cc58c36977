package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var (
	segmentJSON     bool
	segmentSplitter string
	segmentTarget   int
	segmentMax      int
	segmentMin      int
	segmentDrop     float64
	segmentStd      float64
	segmentRadius   int
	segmentBatch    int
)

var segmentCmd = &cobra.Command{
	Use:   "segment [file]",
	Short: "Split a text file into semantic chunks",
	Long: `Splits text into sentences, embeds them and places chunk boundaries where
the smoothed similarity between neighbouring sentences drops. Chunks are then
sized to the token bounds. Nothing is indexed.

Use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

func init() {
	f := segmentCmd.Flags()
	f.BoolVar(&segmentJSON, "json", false, "output chunks as JSON")
	f.StringVar(&segmentSplitter, "splitter", "auto", "sentence splitter: auto, unicode or regex")
	f.IntVar(&segmentTarget, "target-tokens", 0, "flush a chunk once it reaches this many tokens")
	f.IntVar(&segmentMax, "max-tokens", 0, "upper token bound per chunk")
	f.IntVar(&segmentMin, "min-tokens", 0, "merge chunks smaller than this into their predecessor")
	f.Float64Var(&segmentDrop, "drop-threshold", 0, "similarity drop that marks a topic shift")
	f.Float64Var(&segmentStd, "std-multiplier", 0, "k in the dynamic threshold mean - k*std")
	f.IntVar(&segmentRadius, "smoothing-radius", 0, "moving-average radius over similarities")
	f.IntVar(&segmentBatch, "batch-size", 0, "sentences per embedding request")
	rootCmd.AddCommand(segmentCmd)
}

// segmentChunk is the JSON form of a chunk.
type segmentChunk struct {
	Position  int    `json:"position"`
	Tokens    int    `json:"tokens"`
	Sentences int    `json:"sentences"`
	Oversized bool   `json:"oversized,omitempty"`
	Content   string `json:"content"`
}

func runSegment(cmd *cobra.Command, args []string) error {
	if segmentService == nil {
		return errors.New("segment service not configured")
	}

	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	settings, err := segmentSettings(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	chunks, err := segmentService.Segment(ctx, text, driving.SegmentOptions{
		Settings: settings,
		Splitter: segmentSplitter,
	})
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	if segmentJSON {
		out := make([]segmentChunk, len(chunks))
		for i := range chunks {
			out[i] = segmentChunk{
				Position:  chunks[i].Position,
				Tokens:    chunks[i].Tokens,
				Sentences: chunks[i].SentenceCount,
				Oversized: chunks[i].Oversized,
				Content:   chunks[i].Content,
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal chunks: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks produced.")
		return nil
	}

	st := newStyles()
	width := outputWidth(cmd.OutOrStdout()) - 6
	for i := range chunks {
		c := &chunks[i]
		header := fmt.Sprintf("Chunk %d", c.Position+1)
		info := fmt.Sprintf("%d tokens, %d sentences", c.Tokens, c.SentenceCount)
		if c.Oversized {
			info += ", " + st.Warning.Render("oversized")
		}
		cmd.Printf("%s %s\n", st.Title.Render(header), st.Muted.Render("("+info+")"))
		cmd.Printf("    %s\n\n", truncate(firstLine(c.Content), width))
	}
	cmd.Printf("Total: %d chunks\n", len(chunks))
	return nil
}

// segmentSettings starts from the configured settings and applies any
// flags the user set. It returns nil when no flag was set.
func segmentSettings(cmd *cobra.Command) (*domain.SegmentationSettings, error) {
	f := cmd.Flags()
	names := []string{
		"target-tokens", "max-tokens", "min-tokens", "drop-threshold",
		"std-multiplier", "smoothing-radius", "batch-size",
	}
	changed := false
	for _, n := range names {
		changed = changed || f.Changed(n)
	}
	if !changed {
		return nil, nil
	}

	s := domain.DefaultSegmentationSettings()
	if settingsService != nil {
		current, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		s = current.Segmentation
	}

	if f.Changed("target-tokens") {
		s.TargetTokens = segmentTarget
	}
	if f.Changed("max-tokens") {
		s.MaxTokens = segmentMax
	}
	if f.Changed("min-tokens") {
		s.MinTokens = segmentMin
	}
	if f.Changed("drop-threshold") {
		s.SimilarityDropThreshold = segmentDrop
	}
	if f.Changed("std-multiplier") {
		s.StdMultiplier = segmentStd
	}
	if f.Changed("smoothing-radius") {
		s.SmoothingWindowRadius = segmentRadius
	}
	if f.Changed("batch-size") {
		s.EmbedBatchSize = segmentBatch
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
