package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can react without
// string matching.
type ErrorKind string

const (
	// ErrInvalidCredentials means the recognition service rejected the API key.
	ErrInvalidCredentials ErrorKind = "invalid_credentials"
	// ErrServiceUnavailable means the service could not be reached or kept
	// failing after retries.
	ErrServiceUnavailable ErrorKind = "service_unavailable"
	// ErrMalformedResponse means the service returned data that could not be
	// interpreted, or rejected the request outright.
	ErrMalformedResponse ErrorKind = "malformed_response"
	// ErrRenderFailure means markdown output could not be produced.
	ErrRenderFailure ErrorKind = "render_failure"
	// ErrWorkspaceFailure means scratch storage could not be provisioned or
	// written.
	ErrWorkspaceFailure ErrorKind = "workspace_failure"
)

// PipelineError is a classified pipeline failure. Op names the operation
// that failed; Err carries the underlying cause when there is one.
type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a classified pipeline error.
func NewPipelineError(kind ErrorKind, op string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the classification carried anywhere in err's wrap chain,
// or the empty string when err carries none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
