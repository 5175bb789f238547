package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/domain"
	"github.com/ahrav/go-texpreview/internal/preview"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /document", s.putDocument)
	mux.HandleFunc("DELETE /document", s.deleteDocument)
	mux.HandleFunc("GET /state", s.getState)
	mux.HandleFunc("GET "+s.cfg.PreviewPath+"{id}", s.getPreview)
	mux.HandleFunc("GET /download/"+PDFFileName, s.downloadPDF)
	mux.HandleFunc("GET /download/"+SourceFileName, s.downloadSource)
	return s.logRequests(mux)
}

// StateResponse is the JSON body of GET /state.
type StateResponse struct {
	Phase       domain.Phase       `json:"phase"`
	Loading     bool               `json:"loading"`
	DocumentKey domain.DocumentKey `json:"document_key,omitempty"`
	PreviewURL  string             `json:"preview_url,omitempty"`
	Error       *ErrorResponse     `json:"error,omitempty"`
}

// ErrorResponse describes a classified failure.
type ErrorResponse struct {
	Kind    compileerrors.ErrorType `json:"kind"`
	Message string                  `json:"message"`
	Log     string                  `json:"log,omitempty"`
}

func newStateResponse(st domain.PipelineState) StateResponse {
	resp := StateResponse{
		Phase:       st.Phase,
		Loading:     st.Loading(),
		DocumentKey: st.DocumentKey,
	}
	if st.Ref != nil {
		resp.PreviewURL = st.Ref.URL
	}
	if st.Err != nil {
		resp.Error = &ErrorResponse{Kind: st.Err.Type, Message: st.Err.Message, Log: st.Err.Log}
	}
	return resp
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "document too large", nil)
			return
		}
		s.writeError(w, http.StatusBadRequest, "read document", err)
		return
	}
	s.applyDocument(w, string(body))
}

func (s *Server) deleteDocument(w http.ResponseWriter, _ *http.Request) {
	s.applyDocument(w, "")
}

func (s *Server) applyDocument(w http.ResponseWriter, text string) {
	if err := s.preview.OnDocumentChanged(text); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, newStateResponse(s.preview.State()))
}

func (s *Server) getState(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, newStateResponse(s.preview.State()))
}

func (s *Server) getPreview(w http.ResponseWriter, r *http.Request) {
	artifact, ok := s.artifacts.Lookup(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.writeBytes(w, domain.PDFContentType, "inline", "", artifact.Data)
}

func (s *Server) downloadPDF(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.preview.RequestArtifactForDownload(r.Context())
	if err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.writeBytes(w, domain.PDFContentType, "attachment", PDFFileName, artifact.Data)
}

func (s *Server) downloadSource(w http.ResponseWriter, _ *http.Request) {
	s.writeBytes(w, TeXContentType+"; charset=utf-8", "attachment", SourceFileName, s.preview.SourceText())
}

// statusFor maps an orchestrator error to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, preview.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	ce, ok := compileerrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ce.Type {
	case compileerrors.ErrorTypeEmptyInput:
		return http.StatusBadRequest
	case compileerrors.ErrorTypeService, compileerrors.ErrorTypeUnexpectedContent:
		return http.StatusUnprocessableEntity
	case compileerrors.ErrorTypeNetwork:
		return http.StatusBadGateway
	case compileerrors.ErrorTypeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeOrchestratorError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if ce, ok := compileerrors.As(err); ok {
		s.writeJSON(w, status, ErrorResponse{Kind: ce.Type, Message: ce.Message, Log: ce.Log})
		return
	}
	s.writeError(w, status, err.Error(), nil)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	s.writeJSON(w, status, map[string]string{"message": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

func (s *Server) writeBytes(w http.ResponseWriter, contentType, disposition, filename string, data []byte) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	params := map[string]string{}
	if filename != "" {
		params["filename"] = filename
	}
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, params))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
