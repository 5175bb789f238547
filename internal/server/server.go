// Package server exposes one preview orchestrator over HTTP: document
// updates, the pipeline state, the live preview bytes, and the two
// downloads (compiled PDF and LaTeX source).
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// Download file names.
const (
	PDFFileName    = "report.pdf"
	SourceFileName = "report-source.tex"
	TeXContentType = "application/x-tex"
)

// DefaultMaxDocumentBytes caps a PUT /document body.
const DefaultMaxDocumentBytes = 8 << 20

const readHeaderTimeout = 10 * time.Second

// Previewer is the orchestrator surface the server drives.
// *preview.Orchestrator satisfies it.
type Previewer interface {
	OnDocumentChanged(text string) error
	State() domain.PipelineState
	SourceText() []byte
	RequestArtifactForDownload(ctx context.Context) (*domain.Artifact, error)
}

// Artifacts resolves display reference ids. *displayref.Registry satisfies it.
type Artifacts interface {
	Lookup(id string) (*domain.Artifact, bool)
}

// Server serves the preview routes.
type Server struct {
	preview          Previewer
	artifacts        Artifacts
	cfg              configuration.ServerConfig
	logger           *slog.Logger
	maxDocumentBytes int64
	handler          http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger.With("component", "server") }
}

// WithMaxDocumentBytes overrides DefaultMaxDocumentBytes.
func WithMaxDocumentBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxDocumentBytes = n
		}
	}
}

// New builds a server. cfg.PreviewPath must match the base path the display
// reference registry issues URLs under.
func New(cfg configuration.ServerConfig, preview Previewer, artifacts Artifacts, opts ...Option) *Server {
	if cfg.PreviewPath == "" {
		cfg.PreviewPath = configuration.DefaultPreviewPath
	}
	// displayref.NewRegistry appends the same slash to its URLs.
	if !strings.HasSuffix(cfg.PreviewPath, "/") {
		cfg.PreviewPath += "/"
	}
	s := &Server{
		preview:          preview,
		artifacts:        artifacts,
		cfg:              cfg,
		logger:           slog.Default().With("component", "server"),
		maxDocumentBytes: DefaultMaxDocumentBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the server's routes, wrapped with request logging.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on cfg.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// cfg.ShutdownTimeout. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info("preview server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = configuration.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	s.logger.Info("preview server stopped")
	return nil
}
