// -----------------------------------------------------------------------
// OCR Client Interface - Submit documents to the recognition service
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/scriptor/internal/models"
)

// OCRClient submits documents to the recognition service. Implementations
// validate their credential once per client instance and cache the outcome.
type OCRClient interface {
	// ValidateAPIKey checks the configured credential against the service.
	// An invalid key is reported in the result, not as an error; errors are
	// reserved for transport failures.
	ValidateAPIKey(ctx context.Context) (*models.KeyValidation, error)

	// ProcessDocument submits document content for recognition and returns
	// the raw service response. Transient failures are retried; client
	// errors fail immediately.
	ProcessDocument(ctx context.Context, content []byte, filename string, opts models.SubmissionOptions) (*models.OCRResponse, error)
}
