package common

import (
	"github.com/google/uuid"
)

// NewConversionID generates a unique conversion ID with the "conv_" prefix
// Format: conv_<uuid>
func NewConversionID() string {
	return "conv_" + uuid.New().String()
}
