// Package activity implements the Temporal activities of the render workflow.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-texpreview/internal/artifactstore"
	"github.com/ahrav/go-texpreview/internal/compile"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// DefaultHeartbeatInterval is used when the activity has no heartbeat timeout.
const DefaultHeartbeatInterval = 10 * time.Second

// Activities holds the dependencies of the render activities.
type Activities struct {
	compiler          compile.Client
	store             artifactstore.Store
	heartbeatInterval time.Duration
	heartbeat         func(ctx context.Context, details ...any)
}

// Option configures Activities.
type Option func(*Activities)

// WithHeartbeatInterval fixes how often a running compile heartbeats. By
// default it is a third of the activity's heartbeat timeout.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(a *Activities) { a.heartbeatInterval = d }
}

// NewActivities creates Activities. Used for both production (with a real
// client) and testing (with a fake).
func NewActivities(compiler compile.Client, store artifactstore.Store, opts ...Option) *Activities {
	a := &Activities{compiler: compiler, store: store, heartbeat: RecordHeartbeat}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RenderDocument compiles the requested document and stores the PDF, plus
// any build log the service attached, in the artifact store.
func (a *Activities) RenderDocument(ctx context.Context, in domain.RenderRequest) (*domain.RenderResult, error) {
	if err := in.Validate(); err != nil {
		return nil, nonRetryable(tagValidation, err, "invalid render request")
	}

	SafeLog(ctx, "render started", "job_id", in.JobID, "document_bytes", len(in.Document))
	a.heartbeat(ctx, "compiling")

	stop := a.keepAlive(ctx, "compiling")
	artifact, err := a.compiler.Compile(ctx, in.Document)
	stop()
	if err != nil {
		SafeLogError(ctx, "render failed", "job_id", in.JobID, "error", err)
		return nil, compileFailure(ctx, err)
	}

	a.heartbeat(ctx, "storing")

	pdfRef, err := a.store.Put(ctx, artifact.Data, domain.ArtifactPDF,
		fmt.Sprintf("pdf/%s/%s.pdf", in.JobID, artifact.DocumentKey))
	if err != nil {
		return nil, retryable(tagStorage, err, "failed to store PDF")
	}

	var logRef domain.ArtifactRef
	if artifact.Log != "" {
		logRef, err = a.store.Put(ctx, []byte(artifact.Log), domain.ArtifactCompileLog,
			fmt.Sprintf("log/%s/%s.log", in.JobID, artifact.DocumentKey))
		if err != nil {
			return nil, retryable(tagStorage, err, "failed to store compile log")
		}
	}

	out := &domain.RenderResult{
		JobID:       in.JobID,
		DocumentKey: artifact.DocumentKey,
		PDF:         pdfRef,
		Log:         logRef,
		RequestID:   artifact.RequestID,
	}
	if err := out.Validate(); err != nil {
		return nil, nonRetryable(tagValidation, fmt.Errorf("%w: %w", ErrInvalidOutput, err), "invalid output")
	}

	SafeLog(ctx, "render finished", "job_id", in.JobID, "pdf_bytes", pdfRef.Size)
	return out, nil
}

// keepAlive heartbeats with details until the returned stop is called, so a
// compile slower than the heartbeat timeout is not taken for a dead worker.
func (a *Activities) keepAlive(ctx context.Context, details string) (stop func()) {
	interval := a.heartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
		if timeout := HeartbeatTimeout(ctx); timeout > 0 {
			interval = timeout / 3
		}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.heartbeat(ctx, details)
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
