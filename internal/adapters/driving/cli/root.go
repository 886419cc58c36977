// Package cli provides the command-line interface for sercha-rag.
package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// skipBootstrap marks commands that run without the indexing services.
const skipBootstrap = "skip-bootstrap"

var version = "dev"

var (
	configDir string
	verbose   bool
	timeout   time.Duration
)

// Services wired by SetServices or the bootstrap function.
var (
	searchService   driving.SearchService
	ingestService   driving.IngestService
	documentService driving.DocumentService
	segmentService  driving.SegmentService
	settingsService driving.SettingsService
	configValidator driven.AIConfigValidator
	supportedTypes  func() []string
)

// Services bundles the driving ports used by commands.
type Services struct {
	Search    driving.SearchService
	Ingest    driving.IngestService
	Documents driving.DocumentService
	Segments  driving.SegmentService
	Settings  driving.SettingsService
	Validator driven.AIConfigValidator

	// SupportedTypes lists the MIME types that can be ingested.
	SupportedTypes func() []string

	// Warnings are printed once before the command runs.
	Warnings []string
}

// BootstrapFunc builds the services for configDir. The returned function
// releases them.
type BootstrapFunc func(ctx context.Context, configDir string) (*Services, func() error, error)

// SettingsBootstrapFunc builds only the settings service and validator, so
// configuration commands work even when the settings are invalid.
type SettingsBootstrapFunc func(configDir string) (driving.SettingsService, driven.AIConfigValidator, error)

var (
	bootstrap         BootstrapFunc
	settingsBootstrap SettingsBootstrapFunc
	cleanup           func() error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Multimodal semantic segmentation and search",
	Long: `sercha-rag splits documents into semantically coherent chunks, embeds
them per modality and answers queries by fusing text and image results.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.sercha-rag)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "abort the command after this duration (0 = none)")
}

// Execute runs the root command. Cancelling ctx stops long-running
// commands such as ingest --watch and mcp.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	return errors.Join(err, teardown(rootCmd, nil))
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrap registers the functions used to build services lazily.
func SetBootstrap(full BootstrapFunc, settingsOnly SettingsBootstrapFunc) {
	bootstrap = full
	settingsBootstrap = settingsOnly
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	searchService = s.Search
	ingestService = s.Ingest
	documentService = s.Documents
	segmentService = s.Segments
	settingsService = s.Settings
	configValidator = s.Validator
	supportedTypes = s.SupportedTypes
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	switch {
	case cmd.Annotations[skipBootstrap] == "true":
		return nil
	case cmd.Annotations[skipBootstrap] == "settings":
		return setupSettings()
	case searchService != nil || bootstrap == nil:
		return nil
	}

	svc, release, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return err
	}
	SetServices(svc)
	cleanup = release
	for _, w := range svc.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
	return nil
}

func setupSettings() error {
	if settingsService != nil || settingsBootstrap == nil {
		return nil
	}
	svc, validator, err := settingsBootstrap(configDir)
	if err != nil {
		return err
	}
	settingsService = svc
	configValidator = validator
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if cleanup == nil {
		return nil
	}
	err := cleanup()
	cleanup = nil
	SetServices(nil)
	return err
}

// commandContext derives the context for a command, applying --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
