package domain

import (
	"bytes"
	"time"
)

// PDFContentType is the only content type accepted as a compiled artifact.
const PDFContentType = "application/pdf"

// ArtifactKind represents the type of content stored in an artifact.
// Using typed constants instead of raw strings provides compile-time safety
// and prevents typos that could bypass validation.
type ArtifactKind string

const (
	// ArtifactPDF represents compiled PDF output.
	ArtifactPDF ArtifactKind = "pdf"

	// ArtifactSource represents LaTeX source text.
	ArtifactSource ArtifactKind = "tex_source"

	// ArtifactCompileLog represents a compiler diagnostic log.
	ArtifactCompileLog ArtifactKind = "compile_log"
)

// Artifact is the compiled binary output of one successful compile.
// Data is owned by the Artifact; callers must not mutate it after construction.
type Artifact struct {
	// Data holds the raw PDF bytes.
	Data []byte `json:"-" validate:"required,min=1"`

	// ContentType is the declared content type of the response.
	ContentType string `json:"content_type" validate:"required"`

	// Log is a diagnostic log the service attached to a successful build, if any.
	Log string `json:"log,omitempty"`

	// DocumentKey identifies the source document this artifact was compiled from.
	DocumentKey DocumentKey `json:"document_key" validate:"required,len=64,hexadecimal"`

	// RequestID correlates the artifact with the compile request that produced it.
	RequestID string `json:"request_id" validate:"omitempty,uuid"`

	// CompiledAt records when the response was received.
	CompiledAt time.Time `json:"compiled_at"`
}

// Validate checks if the artifact meets all requirements.
func (a *Artifact) Validate() error { return validate.Struct(a) }

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int64 { return int64(len(a.Data)) }

// LooksLikePDF reports whether Data starts with the PDF magic header.
func (a *Artifact) LooksLikePDF() bool { return bytes.HasPrefix(a.Data, []byte("%PDF")) }

// ArtifactRef represents a reference to content stored in the artifact store.
// It keeps workflow payloads small by passing keys instead of PDF bytes.
type ArtifactRef struct {
	// Key is the unique identifier for the stored artifact (e.g., "pdf/2025/08/<id>.pdf").
	// Can be empty when the ArtifactRef is not used (i.e., when IsZero() returns true).
	Key string `json:"key" validate:"required_with=Kind"`

	// Size is the size of the stored content in bytes.
	Size int64 `json:"size" validate:"min=0"`

	// Kind categorizes the type of content stored.
	// Can be empty when the ArtifactRef is not used (i.e., when IsZero() returns true).
	Kind ArtifactKind `json:"kind" validate:"required_with=Key,omitempty,oneof=pdf tex_source compile_log"`
}

// Validate checks if the artifact reference meets all requirements.
// Returns nil if valid, or a validation error describing the first constraint violation.
func (a ArtifactRef) Validate() error { return validate.Struct(a) }

// IsZero reports whether the artifact reference has no meaningful value set.
func (a ArtifactRef) IsZero() bool { return a.Key == "" && a.Size == 0 && a.Kind == "" }
