package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ternarybob/scriptor/internal/common"
	"github.com/ternarybob/scriptor/internal/models"
	"github.com/ternarybob/scriptor/internal/services/converter"
	"github.com/ternarybob/scriptor/internal/services/markdown"
	"github.com/ternarybob/scriptor/internal/services/ocr"
	"github.com/ternarybob/scriptor/internal/services/pdfinfo"
	"github.com/ternarybob/scriptor/internal/services/processor"
	"github.com/ternarybob/scriptor/internal/services/transform"
	"github.com/ternarybob/scriptor/internal/services/workspace"
)

func runConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)

	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable, later files override)")
	fs.Var(&configFiles, "c", "Configuration file path (shorthand)")
	apiKey := fs.String("key", "", "Recognition API key (overrides config)")
	outputDir := fs.String("output", "", "Output directory (overrides config)")
	outputDirO := fs.String("o", "", "Output directory (shorthand)")
	model := fs.String("model", "", "Recognition model (overrides config)")
	title := fs.String("title", "", "Document title for the markdown front matter")
	author := fs.String("author", "", "Document author for the markdown front matter")
	subject := fs.String("subject", "", "Document subject for the markdown front matter")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: scriptor convert [flags] <document>")
		os.Exit(1)
	}
	inputPath := fs.Arg(0)

	finalOutput := *outputDir
	if *outputDirO != "" {
		finalOutput = *outputDirO
	}

	// Startup sequence: config -> flag overrides -> logger -> banner
	config = loadConfig(configFiles)
	common.ApplyFlagOverrides(config, *apiKey, finalOutput, *model)
	logger = common.InitLogger(config)
	common.PrintBanner(common.LoadVersionFromFile())

	content, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", inputPath).Msg("Failed to read input document")
		os.Exit(1)
	}

	svc := buildConverter()

	// Cancel the in-flight conversion on interrupt; workspace cleanup
	// still runs on the cancellation path.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	artifact, err := svc.Convert(ctx, models.ConvertRequest{
		Content:  content,
		Filename: filepath.Base(inputPath),
		Metadata: models.DocumentMetadata{
			Title:       *title,
			Author:      *author,
			Subject:     *subject,
			ConvertedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Options: models.SubmissionOptions{
			Model:         config.OCR.Model,
			IncludeImages: config.OCR.IncludeImages,
		},
		OutputDir: config.Converter.OutputDir,
	})
	if err != nil {
		logger.Error().Err(err).Str("kind", string(models.KindOf(err))).Msg("Conversion failed")
		os.Exit(1)
	}

	for _, w := range artifact.Warnings {
		logger.Warn().Str("code", w.Code).Int("page", w.Page).Msg(w.Message)
	}

	fmt.Printf("Markdown written to %s (%d assets, %d warnings)\n",
		artifact.OutputPath, len(artifact.Assets), len(artifact.Warnings))
}

func runValidateKey(args []string) {
	fs := flag.NewFlagSet("validate-key", flag.ExitOnError)

	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (repeatable, later files override)")
	fs.Var(&configFiles, "c", "Configuration file path (shorthand)")
	apiKey := fs.String("key", "", "Recognition API key (overrides config)")
	fs.Parse(args)

	config = loadConfig(configFiles)
	common.ApplyFlagOverrides(config, *apiKey, "", "")
	logger = common.InitLogger(config)

	client := newOCRClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.ValidateAPIKey(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Key validation could not reach the service")
		os.Exit(1)
	}

	if result.Valid {
		fmt.Println("API key is valid")
		return
	}
	fmt.Printf("API key is invalid: %s\n", result.Reason)
	os.Exit(1)
}

// newOCRClient builds a recognition client from the loaded configuration.
func newOCRClient() *ocr.Client {
	return ocr.NewClient(config.OCR.APIKey,
		ocr.WithBaseURL(config.OCR.BaseURL),
		ocr.WithModel(config.OCR.Model),
		ocr.WithRateLimit(config.OCR.RateLimit),
		ocr.WithHTTPClient(&http.Client{Timeout: config.OCR.RequestTimeoutDuration()}),
		ocr.WithLogger(logger),
	)
}

// buildConverter wires the conversion pipeline from the loaded
// configuration.
func buildConverter() *converter.Service {
	wsManager, err := workspace.NewManager(config.Workspace.BaseDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize workspace manager")
		os.Exit(1)
	}

	transformSvc := transform.NewService(logger)

	return converter.NewService(
		newOCRClient(),
		processor.NewService(transformSvc, logger),
		markdown.NewGenerator(logger),
		wsManager,
		pdfinfo.NewService(logger),
		logger,
	)
}
