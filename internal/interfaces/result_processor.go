package interfaces

import (
	"github.com/ternarybob/scriptor/internal/models"
)

// ResultProcessor normalizes raw recognition results into structured
// documents. Damaged sub-elements degrade or drop with warnings; only a
// result with no usable pages is rejected.
type ResultProcessor interface {
	Process(raw *models.OCRResponse) (*models.ProcessedDocument, error)
}
