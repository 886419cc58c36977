package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var settingsAnnotation = map[string]string{skipBootstrap: "settings"}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        `View, initialise and validate segmentation, fusion and embedding settings.`,
	Annotations: settingsAnnotation,
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsAnnotation,
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write default settings",
	Long:        `Writes the default settings to config.toml, replacing existing values.`,
	Annotations: settingsAnnotation,
	RunE:        runConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:         "check",
	Short:       "Validate settings and ping embedding providers",
	Annotations: settingsAnnotation,
	RunE:        runConfigCheck,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure an embedding provider",
	Long: `Interactively choose the embedding provider for the text modality, or for
the image modality with --image.`,
	Annotations: settingsAnnotation,
	RunE:        runConfigEmbedding,
}

var configImage bool

// embeddingProviders lists providers in menu order.
var embeddingProviders = []domain.AIProvider{
	domain.AIProviderHashing,
	domain.AIProviderOllama,
	domain.AIProviderOpenAI,
}

func init() {
	configEmbeddingCmd.Flags().BoolVar(&configImage, "image", false, "configure the image modality")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	seg := settings.Segmentation
	cmd.Println("[Segmentation]")
	cmd.Printf("  Tokens: min %d, target %d, max %d\n", seg.MinTokens, seg.TargetTokens, seg.MaxTokens)
	cmd.Printf("  Drop threshold: %.2f\n", seg.SimilarityDropThreshold)
	cmd.Printf("  Std multiplier: %.2f\n", seg.StdMultiplier)
	cmd.Printf("  Smoothing radius: %d\n", seg.SmoothingWindowRadius)
	cmd.Printf("  Embed batch size: %d\n", seg.EmbedBatchSize)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunker: %s\n", settings.Chunking.Chunker)
	if settings.Chunking.Chunker == domain.ChunkerFixed {
		cmd.Printf("  Window: %d runes, overlap %d\n", settings.Chunking.WindowRunes, settings.Chunking.OverlapRunes)
	}
	cmd.Println()

	cmd.Println("[Fusion]")
	cmd.Printf("  Strategy: %s\n", settings.Fusion.Strategy.Description())
	cmd.Printf("  Top K for confidence: %d\n", settings.Fusion.TopKForConfidence)
	if settings.Fusion.Strategy == domain.FusionRRF {
		cmd.Printf("  RRF constant: %d\n", settings.Fusion.RRFConstant)
	}
	cmd.Printf("  Default limit: %d\n", settings.Search.DefaultLimit)
	cmd.Println()

	printEmbedding(cmd, "[Embedding: text]", settings.Embedding)
	printEmbedding(cmd, "[Embedding: image]", settings.ImageEmbedding)

	cmd.Println("[Tokenizer]")
	cmd.Printf("  Provider: %s\n", settings.Tokenizer.Provider)
	if settings.Tokenizer.Encoding != "" {
		cmd.Printf("  Encoding: %s\n", settings.Tokenizer.Encoding)
	}
	cmd.Println()

	cmd.Println("[Rate Limit]")
	cmd.Printf("  Requests/s: %.1f (burst %d)\n", settings.RateLimit.RequestsPerSecond, settings.RateLimit.Burst)
	cmd.Printf("  Retries: %d\n", settings.RateLimit.MaxRetries)
	cmd.Printf("  Batch size: %d\n", settings.RateLimit.BatchSize)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-rag config embedding' or edit config.toml to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printEmbedding(cmd *cobra.Command, header string, e domain.EmbeddingSettings) {
	cmd.Println(header)
	if e.Provider == "" {
		cmd.Println("  Provider: (disabled)")
		cmd.Println()
		return
	}
	cmd.Printf("  Provider: %s\n", e.Provider.Description())
	cmd.Printf("  Model: %s\n", e.Model)
	if e.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", e.BaseURL)
	}
	if e.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", e.Dimensions)
	}
	if e.Provider.RequiresAPIKey() {
		if e.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(e.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !e.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	defaults := settingsService.GetDefaults()
	if err := settingsService.Save(&defaults); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("Default settings written.")
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	st := newStyles()
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Settings: %s %v\n", st.Error.Render("FAILED"), err)
		return err
	}
	cmd.Printf("Settings: %s\n", st.Success.Render("OK"))

	if configValidator == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var failed error
	check := func(name string, e *domain.EmbeddingSettings) {
		if e.Provider == "" {
			return
		}
		cmd.Printf("%s embedding (%s): ", name, e.Provider)
		if err := configValidator.ValidateEmbedding(ctx, e); err != nil {
			cmd.Printf("%s %v\n", st.Error.Render("FAILED"), err)
			failed = errors.Join(failed, err)
			return
		}
		cmd.Println(st.Success.Render("OK"))
	}
	check("Text", &settings.Embedding)
	check("Image", &settings.ImageEmbedding)
	return failed
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	modality := domain.ModalityText
	if configImage {
		modality = domain.ModalityImage
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader, modality)
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader, modality domain.Modality) error {
	cmd.Printf("Select %s embedding provider\n", modality)
	for i, p := range embeddingProviders {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(embeddingProviders), 1)
	selectedProvider := embeddingProviders[idx-1]

	defaultModel := domain.DefaultEmbeddingModels()[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(modality, selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if configValidator != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		target := &settings.Embedding
		if modality == domain.ModalityImage {
			target = &settings.ImageEmbedding
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		cmd.Print("Validating configuration... ")
		if err := configValidator.ValidateEmbedding(ctx, target); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			return fmt.Errorf("embedding configuration validation failed: %w", err)
		}
		cmd.Println("OK")
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func readPassword(reader *bufio.Reader) string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
