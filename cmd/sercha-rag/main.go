// Command sercha-rag segments, indexes and searches documents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/app"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap, bootstrapSettings)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, configDir string) (*cli.Services, func() error, error) {
	a, err := app.New(ctx, app.Options{ConfigDir: configDir})
	if err != nil {
		return nil, nil, err
	}
	return &cli.Services{
		Search:         a.Search,
		Ingest:         a.Ingest,
		Documents:      a.Documents,
		Segments:       a.Segments,
		Settings:       a.SettingsService,
		Validator:      a.Validator,
		SupportedTypes: a.Normalisers.SupportedMIMETypes,
		Warnings:       a.Warnings,
	}, a.Close, nil
}

func bootstrapSettings(configDir string) (driving.SettingsService, driven.AIConfigValidator, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, err
	}
	return services.NewSettingsService(store), ai.NewConfigValidator(), nil
}
