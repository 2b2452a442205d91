package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError_Classification(t *testing.T) {
	base := NewPipelineError(ErrServiceUnavailable, "ocr.process", errors.New("connection refused"))

	tests := []struct {
		name string
		err  error
	}{
		{"direct", base},
		{"wrapped once", fmt.Errorf("submit failed: %w", base)},
		{"wrapped twice", fmt.Errorf("convert: %w", fmt.Errorf("submit failed: %w", base))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if KindOf(tt.err) != ErrServiceUnavailable {
				t.Errorf("KindOf = %v", KindOf(tt.err))
			}
			if !IsKind(tt.err, ErrServiceUnavailable) {
				t.Error("IsKind failed through wrap chain")
			}
			if IsKind(tt.err, ErrInvalidCredentials) {
				t.Error("IsKind matched the wrong kind")
			}
		})
	}
}

func TestPipelineError_Unclassified(t *testing.T) {
	err := errors.New("plain error")
	if KindOf(err) != "" {
		t.Errorf("KindOf(plain) = %v", KindOf(err))
	}
	if IsKind(err, ErrServiceUnavailable) {
		t.Error("Plain error matched a kind")
	}
	if KindOf(nil) != "" {
		t.Error("KindOf(nil) should be empty")
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewPipelineError(ErrWorkspaceFailure, "workspace.create", cause)

	if !errors.Is(err, cause) {
		t.Error("Unwrap chain broken")
	}
	if err.Error() == "" || cause.Error() == err.Error() {
		t.Errorf("Error string should carry op and kind: %q", err.Error())
	}
}
