package domain

import (
	"fmt"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
)

// Phase is the coarse state of the preview pipeline.
type Phase int

const (
	// PhaseIdle means there is no document. Initial state and the state after clearing.
	PhaseIdle Phase = iota
	// PhaseCompiling means an attempt for the current document is in flight.
	PhaseCompiling
	// PhaseReady means the current document compiled and a display reference is live.
	PhaseReady
	// PhaseFailed means the current document's compile failed.
	PhaseFailed
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCompiling:
		return "compiling"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{PhaseIdle, PhaseCompiling, PhaseReady, PhaseFailed} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// DisplayRef is a short-lived local handle that lets a view render an
// Artifact. It is valid until revoked by the registry that issued it.
type DisplayRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PipelineState is a snapshot of the preview pipeline.
//
// In PhaseCompiling, Artifact and Ref still describe the previous result, so
// the view keeps showing it until the new attempt settles. In PhaseFailed,
// Ref is nil and Err is set. In PhaseIdle every field but Phase is zero.
type PipelineState struct {
	Phase       Phase                       `json:"phase"`
	DocumentKey DocumentKey                 `json:"document_key,omitempty"`
	Artifact    *Artifact                   `json:"artifact,omitempty"`
	Ref         *DisplayRef                 `json:"ref,omitempty"`
	Err         *compileerrors.CompileError `json:"error,omitempty"`
}

// Loading reports whether a compile is in flight.
func (s PipelineState) Loading() bool { return s.Phase == PhaseCompiling }
