package compile

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/compile/transport"
)

// Metrics collects counters and histograms with tag-based dimensions.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

func (NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}

// LoggingMiddleware logs and measures every compile request.
type LoggingMiddleware struct {
	logger  *slog.Logger
	metrics Metrics
}

// NewLoggingMiddleware creates the request logging layer. Nil arguments fall
// back to slog.Default and NoOpMetrics.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	lm := &LoggingMiddleware{
		logger:  logger.With("component", "compile"),
		metrics: metrics,
	}
	return lm.Middleware
}

// Middleware wraps next with request logging.
func (m *LoggingMiddleware) Middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if req.RequestID == "" {
			req.RequestID = uuid.New().String()
		}

		baseTags := map[string]string{"compiler": req.Compiler}
		m.metrics.IncrementCounter("compile.requests.total", baseTags, 1)

		m.logger.InfoContext(ctx, "compile request started",
			"request_id", req.RequestID,
			"document_key", req.DocumentKey,
			"compiler", req.Compiler,
			"document_bytes", len(req.Document))

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		m.metrics.RecordHistogram("compile.request.duration_ms", baseTags, float64(duration.Milliseconds()))

		if err != nil {
			m.handleError(ctx, req, err, duration, baseTags)
			return nil, err
		}

		m.logger.InfoContext(ctx, "compile request succeeded",
			"request_id", req.RequestID,
			"document_key", req.DocumentKey,
			"status", resp.StatusCode,
			"pdf_bytes", len(resp.Data),
			"duration_ms", duration.Milliseconds())
		return resp, nil
	})
}

func (m *LoggingMiddleware) handleError(
	ctx context.Context,
	req *transport.Request,
	err error,
	duration time.Duration,
	baseTags map[string]string,
) {
	ce := compileerrors.Classify(ctx, err)

	errorTags := maps.Clone(baseTags)
	errorTags["type"] = string(ce.Type)
	m.metrics.IncrementCounter("compile.errors.total", errorTags, 1)

	fields := []any{
		"request_id", req.RequestID,
		"document_key", req.DocumentKey,
		"duration_ms", duration.Milliseconds(),
		"error_type", ce.Type,
		"status", ce.StatusCode,
		"log_bytes", len(ce.Log),
		"error", err.Error(),
	}

	switch ce.Type {
	case compileerrors.ErrorTypeCancelled:
		m.logger.DebugContext(ctx, "compile request cancelled", fields...)
	case compileerrors.ErrorTypeService, compileerrors.ErrorTypeEmptyInput:
		m.logger.InfoContext(ctx, "compile request rejected", fields...)
	default:
		m.logger.WarnContext(ctx, "compile request failed", fields...)
	}

	if ce.HasLog() {
		m.logger.DebugContext(ctx, "compile service log", "request_id", req.RequestID, "log", ce.Log)
	}
}
