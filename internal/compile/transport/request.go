// Package transport defines the request pipeline of the compile client: the
// normalized request and response, the Handler and Middleware abstractions
// the resilience layers compose through, and the core HTTP handler.
package transport

import (
	"net/http"
	"time"

	"github.com/ahrav/go-texpreview/internal/domain"
)

// Request is a normalized compile request.
type Request struct {
	// Document is the LaTeX source sent as the single main resource.
	Document string

	// Compiler is the TeX engine requested from the service.
	Compiler string

	// DocumentKey identifies Document for the given Compiler.
	DocumentKey domain.DocumentKey

	// RequestID correlates logs and the resulting artifact.
	RequestID string
}

// Response is a verified PDF response from the compile service.
type Response struct {
	Data        []byte
	ContentType string
	StatusCode  int
	Log         string
	Headers     http.Header
	Latency     time.Duration
}

// ResponseToArtifact converts a verified response into a domain Artifact.
func ResponseToArtifact(resp *Response, req *Request) *domain.Artifact {
	return &domain.Artifact{
		Data:        resp.Data,
		ContentType: resp.ContentType,
		Log:         resp.Log,
		DocumentKey: req.DocumentKey,
		RequestID:   req.RequestID,
		CompiledAt:  time.Now(),
	}
}
