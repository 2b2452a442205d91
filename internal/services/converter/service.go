// -----------------------------------------------------------------------
// Converter Service - Orchestrates the submit -> process -> render pipeline
// -----------------------------------------------------------------------

package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/common"
	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

// Service drives one document conversion end to end: workspace acquisition,
// credential validation, recognition submission, result normalization, and
// markdown rendering. Each Convert call owns an isolated workspace and makes
// exactly one recognition submission; concurrent calls are independent.
type Service struct {
	client    interfaces.OCRClient
	processor interfaces.ResultProcessor
	generator interfaces.MarkdownRenderer
	workspace interfaces.WorkspaceProvider
	inspector interfaces.SourceInspector
	logger    arbor.ILogger
}

// NewService creates a new converter service.
func NewService(
	client interfaces.OCRClient,
	processor interfaces.ResultProcessor,
	generator interfaces.MarkdownRenderer,
	workspace interfaces.WorkspaceProvider,
	inspector interfaces.SourceInspector,
	logger arbor.ILogger,
) *Service {
	return &Service{
		client:    client,
		processor: processor,
		generator: generator,
		workspace: workspace,
		inspector: inspector,
		logger:    logger,
	}
}

// Convert runs the full pipeline for one document. The conversion workspace
// is released on every exit path, success, failure, and cancellation alike.
func (s *Service) Convert(ctx context.Context, req models.ConvertRequest) (*models.MarkdownArtifact, error) {
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("document content is empty")
	}

	conversionID := common.NewConversionID()
	log := s.logger.WithCorrelationId(conversionID)

	log.Info().
		Str("filename", req.Filename).
		Int("size", len(req.Content)).
		Msg("Starting conversion")

	ws, err := s.workspace.Create("convert")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			log.Warn().Err(err).Str("workspace", ws.ID()).Msg("Workspace release failed")
		}
	}()

	validation, err := s.client.ValidateAPIKey(ctx)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, models.NewPipelineError(models.ErrInvalidCredentials, "converter.convert",
			fmt.Errorf("api key rejected: %s", validation.Reason))
	}

	metadata := req.Metadata
	s.enrichMetadata(&metadata, req.Content, log)

	raw, err := s.client.ProcessDocument(ctx, req.Content, req.Filename, req.Options)
	if err != nil {
		return nil, err
	}

	doc, err := s.processor.Process(raw)
	if err != nil {
		return nil, err
	}
	if metadata.PageCount == 0 {
		metadata.PageCount = doc.Info.PageCount
	}
	if metadata.Model == "" {
		metadata.Model = doc.Info.Model
	}

	assetsDir, err := ws.AssetsDir()
	if err != nil {
		return nil, err
	}

	artifact, err := s.generator.Generate(metadata, doc, assetsDir)
	if err != nil {
		return nil, err
	}

	if req.OutputDir != "" {
		if err := s.persist(artifact, req.Filename, req.OutputDir); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("pages", doc.Info.PageCount).
		Int("assets", len(artifact.Assets)).
		Int("warnings", len(artifact.Warnings)).
		Msg("Conversion complete")

	return artifact, nil
}

// enrichMetadata fills metadata gaps from source inspection. Inspection
// failures are logged, never fatal: the service may still recognize a
// document the local parser cannot read.
func (s *Service) enrichMetadata(metadata *models.DocumentMetadata, content []byte, log arbor.ILogger) {
	if s.inspector == nil || !s.inspector.IsPDF(content) {
		return
	}

	info, err := s.inspector.Inspect(content)
	if err != nil {
		log.Warn().Err(err).Msg("Source inspection failed, continuing without local page count")
		return
	}

	log.Debug().
		Int("page_count", info.PageCount).
		Bool("encrypted", info.Encrypted).
		Msg("Source inspected")

	if metadata.PageCount == 0 {
		metadata.PageCount = info.PageCount
	}
}

// persist writes the markdown file and its assets to the output directory
// before the workspace is released, and points artifact paths at the
// persisted copies.
func (s *Service) persist(artifact *models.MarkdownArtifact, filename, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return models.NewPipelineError(models.ErrWorkspaceFailure, "converter.persist", err)
	}

	outPath := filepath.Join(outputDir, outputStem(filename)+".md")
	if err := os.WriteFile(outPath, []byte(artifact.Markdown), 0644); err != nil {
		return models.NewPipelineError(models.ErrWorkspaceFailure, "converter.persist", err)
	}
	artifact.OutputPath = outPath

	if len(artifact.Assets) > 0 {
		assetsDir := filepath.Join(outputDir, "assets")
		if err := os.MkdirAll(assetsDir, 0755); err != nil {
			return models.NewPipelineError(models.ErrWorkspaceFailure, "converter.persist", err)
		}
		for i := range artifact.Assets {
			asset := &artifact.Assets[i]
			full := filepath.Join(assetsDir, asset.Name)
			if err := os.WriteFile(full, asset.Data, 0644); err != nil {
				return models.NewPipelineError(models.ErrWorkspaceFailure, "converter.persist", err)
			}
			asset.Path = full
		}
	}

	return nil
}

// outputStem derives the markdown file stem from the source filename.
func outputStem(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if stem == "" || stem == "." {
		stem = "document"
	}
	return stem
}
