package interfaces

import (
	"github.com/ternarybob/scriptor/internal/models"
)

// MarkdownRenderer renders processed documents to markdown. Output is
// deterministic for identical inputs.
type MarkdownRenderer interface {
	// Generate renders the document. Image payloads are written under
	// assetsDir; an empty assetsDir keeps assets in memory only.
	Generate(meta models.DocumentMetadata, doc *models.ProcessedDocument, assetsDir string) (*models.MarkdownArtifact, error)

	// RenderPreviewHTML renders markdown output to HTML for preview
	// surfaces.
	RenderPreviewHTML(markdown string) (string, error)
}
