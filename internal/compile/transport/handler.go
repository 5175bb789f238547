package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
)

// ServiceAdapter abstracts the wire format of the compile service.
type ServiceAdapter interface {
	Build(ctx context.Context, req *Request) (*http.Request, error)
	Parse(httpResp *http.Response) (*Response, error)
	Name() string
}

// Handler processes compile requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler.
// The first middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the HTTP exchange.
func NewHTTPHandler(client *http.Client, adapter ServiceAdapter) Handler {
	return &httpHandler{
		client:  client,
		adapter: adapter,
		logger:  slog.Default().With("component", "transport"),
	}
}

// httpHandler is the core handler that makes actual HTTP requests.
// It is the only suspension point of a compile.
type httpHandler struct {
	client  *http.Client
	adapter ServiceAdapter
	logger  *slog.Logger
}

// Handle implements Handler by sending one request and classifying the outcome.
// The request is bounded by ctx and the http.Client timeout.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := h.adapter.Build(ctx, req)
	if err != nil {
		return nil, compileerrors.Classify(ctx, err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, compileerrors.Classify(ctx, err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			h.logger.Debug("closing response body", "error", closeErr)
		}
	}()

	resp, err := h.adapter.Parse(httpResp)
	if err != nil {
		return nil, compileerrors.Classify(ctx, err)
	}
	resp.Latency = time.Since(start)

	return resp, nil
}
