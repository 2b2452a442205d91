// -----------------------------------------------------------------------
// PDF Inspection Service - Structural properties of PDF sources
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdfinfo

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scriptor/internal/interfaces"
	"github.com/ternarybob/scriptor/internal/models"
)

var pdfHeader = []byte("%PDF-")

// Service reports structural properties of PDF sources before submission.
type Service struct {
	logger  arbor.ILogger
	tempDir string
}

// Compile-time interface assertion
var _ interfaces.SourceInspector = (*Service)(nil)

// NewService creates a new PDF inspection service
func NewService(logger arbor.ILogger) *Service {
	// Create a temp directory for PDF processing
	tempDir := filepath.Join(os.TempDir(), "scriptor-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		logger:  logger,
		tempDir: tempDir,
	}
}

// IsPDF reports whether content starts with the PDF file header.
func (s *Service) IsPDF(content []byte) bool {
	return bytes.HasPrefix(content, pdfHeader)
}

// Inspect reads the document structure and reports page count, encryption
// status, and size.
func (s *Service) Inspect(content []byte) (*models.SourceInfo, error) {
	if !s.IsPDF(content) {
		return nil, fmt.Errorf("content is not a PDF document")
	}

	// Write to temp file for pdfcpu processing
	tempFile, err := os.CreateTemp(s.tempDir, "inspect_*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp PDF file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp PDF file: %w", err)
	}

	// Read PDF context
	pdfCtx, err := api.ReadContextFile(tempPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	info := &models.SourceInfo{
		PageCount: pdfCtx.PageCount,
		Encrypted: pdfCtx.Encrypt != nil,
		FileSize:  int64(len(content)),
	}

	s.logger.Debug().
		Int("page_count", info.PageCount).
		Int64("file_size", info.FileSize).
		Bool("encrypted", info.Encrypted).
		Msg("Inspected PDF source")

	return info, nil
}
