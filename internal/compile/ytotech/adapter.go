// Package ytotech speaks the LaTeX-on-HTTP build protocol served at
// latex.ytotech.com and by self-hosted instances of the same service.
package ytotech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strings"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// Name identifies the adapter in logs.
const Name = "ytotech"

const (
	jsonContentType = "application/json"
	logSeparator    = "\n\n"
)

// buildRequest is the JSON body of a sync build.
type buildRequest struct {
	Compiler  string          `json:"compiler"`
	Resources []buildResource `json:"resources"`
	Options   buildOptions    `json:"options"`
}

type buildResource struct {
	Main    bool   `json:"main"`
	Content string `json:"content"`
}

type buildOptions struct {
	Response responseOptions `json:"response"`
}

type responseOptions struct {
	LogFilesOnFailure bool `json:"log_files_on_failure"`
}

// errorPayload is the JSON error body. All fields are optional.
type errorPayload struct {
	Error    string            `json:"error"`
	Logs     *string           `json:"logs"`
	LogFiles map[string]string `json:"log_files"`
}

// Adapter implements transport.ServiceAdapter for the sync build endpoint.
type Adapter struct {
	endpoint         string
	maxResponseBytes int64
}

// NewAdapter creates an adapter posting to endpoint. Bodies larger than
// maxResponseBytes are rejected; zero or less disables the cap.
func NewAdapter(endpoint string, maxResponseBytes int64) *Adapter {
	return &Adapter{endpoint: endpoint, maxResponseBytes: maxResponseBytes}
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return Name }

// Build constructs the POST carrying the document as the sole main resource
// and asking for log files on failure.
func (a *Adapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	body := buildRequest{
		Compiler:  req.Compiler,
		Resources: []buildResource{{Main: true, Content: req.Document}},
		Options:   buildOptions{Response: responseOptions{LogFilesOnFailure: true}},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", jsonContentType)
	httpReq.Header.Set("Accept", domain.PDFContentType+", "+jsonContentType)
	if req.RequestID != "" {
		httpReq.Header.Set("X-Request-Id", req.RequestID)
	}

	return httpReq, nil
}

// Parse verifies a response and extracts the PDF. A 200 without a PDF
// content type is not trusted: it is parsed as an error body instead.
func (a *Adapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	contentType := httpResp.Header.Get("Content-Type")

	body, err := a.readBody(httpResp)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, extractCompilationError(httpResp.StatusCode, contentType, body)
	}

	if !hasMediaType(contentType, domain.PDFContentType) {
		return nil, extractUntrustedSuccess(httpResp.StatusCode, contentType, body)
	}

	return &transport.Response{
		Data:        body,
		ContentType: domain.PDFContentType,
		StatusCode:  httpResp.StatusCode,
		Headers:     httpResp.Header,
	}, nil
}

func (a *Adapter) readBody(httpResp *http.Response) ([]byte, error) {
	reader := io.Reader(httpResp.Body)
	if a.maxResponseBytes > 0 {
		reader = io.LimitReader(httpResp.Body, a.maxResponseBytes+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, compileerrors.NewNetwork("failed to read response", err)
	}

	if a.maxResponseBytes > 0 && int64(len(body)) > a.maxResponseBytes {
		return nil, compileerrors.NewUnexpectedContent(
			httpResp.StatusCode,
			fmt.Sprintf("response exceeds %d bytes", a.maxResponseBytes),
			"",
			compileerrors.ErrResponseTooLarge,
		)
	}
	return body, nil
}

// extractCompilationError classifies a non-OK response. JSON bodies yield
// the service's message and log; anything else is kept verbatim as the log.
func extractCompilationError(status int, contentType string, body []byte) *compileerrors.CompileError {
	if hasMediaType(contentType, jsonContentType) {
		payload, err := decodeErrorPayload(body)
		if err != nil {
			return compileerrors.NewService(status,
				fmt.Sprintf("failed to parse error response (status %d)", status), err.Error())
		}
		return compileerrors.NewService(status, payload.message(status), payload.log())
	}

	return compileerrors.NewService(status, statusMessage(status), string(body))
}

// extractUntrustedSuccess classifies a 200 that is not a PDF. An explicit
// error field is a compile failure; anything else breaks the contract.
func extractUntrustedSuccess(status int, contentType string, body []byte) *compileerrors.CompileError {
	if hasMediaType(contentType, jsonContentType) {
		if payload, err := decodeErrorPayload(body); err == nil && payload.Error != "" {
			return compileerrors.NewService(status, payload.message(status), payload.log())
		}
	}

	kind := contentType
	if kind == "" {
		kind = "no content type"
	}
	return compileerrors.NewUnexpectedContent(status,
		fmt.Sprintf("expected %s, got %s", domain.PDFContentType, kind),
		string(body),
		compileerrors.ErrNotPDF,
	)
}

func decodeErrorPayload(body []byte) (*errorPayload, error) {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (p *errorPayload) message(status int) string {
	if p.Error != "" {
		return "LaTeX compilation failed: " + p.Error
	}
	return statusMessage(status)
}

// log prefers the aggregate logs field and otherwise joins every log file
// in filename order.
func (p *errorPayload) log() string {
	if p.Logs != nil {
		return *p.Logs
	}
	if len(p.LogFiles) == 0 {
		return ""
	}

	names := slices.Sorted(maps.Keys(p.LogFiles))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, p.LogFiles[name])
	}
	return strings.Join(parts, logSeparator)
}

func statusMessage(status int) string {
	return fmt.Sprintf("service responded with status %d", status)
}

// hasMediaType reports whether the Content-Type header declares want.
// Malformed headers fall back to a substring match.
func hasMediaType(header, want string) bool {
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.Contains(strings.ToLower(header), want)
	}
	return strings.EqualFold(mediaType, want)
}

var _ transport.ServiceAdapter = (*Adapter)(nil)
