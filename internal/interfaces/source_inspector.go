package interfaces

import (
	"github.com/ternarybob/scriptor/internal/models"
)

// SourceInspector reports structural properties of source documents before
// submission.
type SourceInspector interface {
	// IsPDF reports whether content looks like a PDF document.
	IsPDF(content []byte) bool

	// Inspect reads the document structure and reports page count,
	// encryption status, and size.
	Inspect(content []byte) (*models.SourceInfo, error)
}
