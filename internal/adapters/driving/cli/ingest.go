package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	ingestWatch   bool
	ingestDryRun  bool
	ingestWorkers int
	ingestMaxSize int64
	ingestInclude []string
	ingestExclude []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index files and directories",
	Long: `Reads every visible file under the given paths, normalises it by MIME type,
segments and embeds it, and stores the chunks for search. Re-ingesting a file
replaces its previous version.

--include and --exclude take glob patterns ("**/*.md", "vendor") matched
against paths relative to each root and against base names.

With --watch the command keeps running and re-indexes files as they change.
With --dry-run files are segmented and reported but nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching paths for changes")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "segment files without storing them")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "j", 4, "files processed concurrently")
	ingestCmd.Flags().Int64Var(&ingestMaxSize, "max-file-size", filesystem.DefaultMaxFileSize, "skip files larger than this many bytes")
	ingestCmd.Flags().StringSliceVar(&ingestInclude, "include", nil, "only index files matching these globs")
	ingestCmd.Flags().StringSliceVar(&ingestExclude, "exclude", nil, "skip files and directories matching these globs")
	rootCmd.AddCommand(ingestCmd)
}

// ingestStats counts outcomes across workers.
type ingestStats struct {
	indexed   atomic.Int64
	chunks    atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	oversized atomic.Int64
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if ingestWatch && ingestDryRun {
		return errors.New("--watch and --dry-run cannot be combined")
	}
	if err := filesystem.ValidatePatterns(slices.Concat(ingestInclude, ingestExclude)); err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	sources := make([]*filesystem.Source, 0, len(args))
	for _, path := range args {
		src := filesystem.New(path,
			filesystem.WithMaxFileSize(ingestMaxSize),
			filesystem.WithInclude(ingestInclude...),
			filesystem.WithExclude(ingestExclude...),
		)
		defer src.Close()
		sources = append(sources, src)
	}

	stats := &ingestStats{}
	for _, src := range sources {
		if err := ingestSource(ctx, cmd, src, stats); err != nil {
			return err
		}
	}

	verb := "Indexed"
	if ingestDryRun {
		verb = "Segmented"
	}
	cmd.Printf("%s %d documents (%d chunks, %d oversized), skipped %d, failed %d\n",
		verb, stats.indexed.Load(), stats.chunks.Load(), stats.oversized.Load(),
		stats.skipped.Load(), stats.failed.Load())

	if !ingestWatch {
		if stats.failed.Load() > 0 {
			return fmt.Errorf("%d documents failed", stats.failed.Load())
		}
		return nil
	}
	return watchSources(ctx, cmd, sources)
}

// ingestSource walks src and ingests its files with a bounded worker pool.
func ingestSource(ctx context.Context, cmd *cobra.Command, src *filesystem.Source, stats *ingestStats) error {
	docs, errs := src.Walk(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(ingestWorkers, 1))

	var mu sync.Mutex
	for raw := range docs {
		g.Go(func() error {
			line := ingestOne(gctx, &raw, stats)
			if line != "" {
				mu.Lock()
				cmd.Println(line)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := <-errs; err != nil {
		return fmt.Errorf("walk %s: %w", src.Root(), err)
	}
	return ctx.Err()
}

// ingestOne processes one file and returns the line to print for it.
func ingestOne(ctx context.Context, raw *domain.RawDocument, stats *ingestStats) string {
	if supportedTypes != nil && !isSupported(raw.MIMEType) {
		stats.skipped.Add(1)
		logger.Debug("Skipping %s (%s)", raw.URI, raw.MIMEType)
		return ""
	}

	if ingestDryRun {
		doc, chunks, err := ingestService.Preview(ctx, raw)
		if err != nil {
			return recordFailure(raw.URI, err, stats)
		}
		stats.indexed.Add(1)
		stats.chunks.Add(int64(len(chunks)))
		oversized := 0
		for i := range chunks {
			if chunks[i].Oversized {
				oversized++
			}
		}
		stats.oversized.Add(int64(oversized))
		return fmt.Sprintf("  %s: %d chunks (%s)", doc.URI, len(chunks), doc.Modality)
	}

	result, err := ingestService.IngestRaw(ctx, raw)
	if err != nil {
		return recordFailure(raw.URI, err, stats)
	}
	stats.indexed.Add(1)
	stats.chunks.Add(int64(result.Chunks))
	stats.oversized.Add(int64(result.Oversized))
	logger.Debug("Indexed %s: %d chunks", raw.URI, result.Chunks)
	return ""
}

func recordFailure(uri string, err error, stats *ingestStats) string {
	if errors.Is(err, domain.ErrUnsupportedType) {
		stats.skipped.Add(1)
		return ""
	}
	stats.failed.Add(1)
	return fmt.Sprintf("  %s: %v", uri, err)
}

func isSupported(mimeType string) bool {
	for _, t := range supportedTypes() {
		if t == mimeType {
			return true
		}
	}
	return false
}

// watchSources re-indexes changed files until ctx is cancelled.
func watchSources(ctx context.Context, cmd *cobra.Command, sources []*filesystem.Source) error {
	changes := make(chan domain.RawDocumentChange)
	var wg sync.WaitGroup
	for _, src := range sources {
		ch, err := src.Watch(ctx)
		if err != nil {
			return fmt.Errorf("watch %s: %w", src.Root(), err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range ch {
				select {
				case changes <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(changes)
	}()

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	for c := range changes {
		applyChange(ctx, cmd, c)
	}
	return nil
}

func applyChange(ctx context.Context, cmd *cobra.Command, c domain.RawDocumentChange) {
	uri := c.Document.URI
	if c.Type == domain.ChangeDeleted {
		err := ingestService.DeleteURI(ctx, uri)
		switch {
		case err == nil:
			cmd.Printf("Removed %s\n", uri)
		case !errors.Is(err, domain.ErrNotFound):
			logger.Warn("Failed to remove %s: %v", uri, err)
		}
		return
	}

	stats := &ingestStats{}
	if line := ingestOne(ctx, &c.Document, stats); line != "" {
		logger.Warn("%s", line)
		return
	}
	if stats.indexed.Load() > 0 {
		cmd.Printf("Indexed %s (%s, %d chunks)\n", uri, c.Type, stats.chunks.Load())
	}
}
