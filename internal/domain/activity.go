// Package domain holds the types shared by the compile client, the preview
// pipeline, and the render workflow: source documents, compiled artifacts,
// pipeline state, and the render contract.
package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRenderRequest indicates a render request failed validation.
var ErrInvalidRenderRequest = errors.New("invalid render request")

// MaxRenderTimeoutSeconds bounds how long a single render may run.
const MaxRenderTimeoutSeconds = 600

// RenderRequest asks the render workflow to compile one document and keep
// the PDF in the artifact store.
type RenderRequest struct {
	// JobID identifies the render and namespaces its stored artifacts.
	JobID string `json:"job_id" validate:"required,uuid"`

	// Document is the LaTeX source.
	Document string `json:"document" validate:"required"`

	// TimeoutSeconds bounds one render attempt. Zero uses the workflow default.
	TimeoutSeconds int `json:"timeout_seconds" validate:"min=0,max=600"`
}

// Validate checks the request against its constraints.
func (r RenderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRenderRequest, err)
	}
	return nil
}

// RenderResult points at the stored outputs of a render.
// Large content travels as artifact references, never inline.
type RenderResult struct {
	JobID       string      `json:"job_id" validate:"required,uuid"`
	DocumentKey DocumentKey `json:"document_key" validate:"required,len=64,hexadecimal"`
	PDF         ArtifactRef `json:"pdf" validate:"required"`
	Log         ArtifactRef `json:"log"`
	RequestID   string      `json:"request_id,omitempty"`
}

// Validate checks the result against its constraints.
func (r RenderResult) Validate() error { return validate.Struct(r) }
