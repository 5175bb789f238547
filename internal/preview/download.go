package preview

import (
	"context"

	"github.com/ahrav/go-texpreview/internal/domain"
)

// RequestArtifactForDownload returns the PDF for the current document. It
// reuses the last successful artifact when that artifact was compiled from
// the current document; otherwise it compiles independently of the preview
// attempt. The two never cancel each other. A successful result becomes the
// cached artifact if the document has not changed in the meantime.
func (o *Orchestrator) RequestArtifactForDownload(ctx context.Context) (*domain.Artifact, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	text := o.source
	if o.cache != nil && o.cache.source == text {
		artifact := o.cache.artifact
		o.mu.Unlock()
		o.logger.Debug("download served from last successful artifact")
		return artifact, nil
	}
	o.mu.Unlock()

	// Teardown aborts downloads too.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(o.baseCtx, cancel)
	defer stop()

	artifact, err := o.compiler.Compile(ctx, text)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if !o.closed && o.source == text {
		o.cache = &lastSuccess{source: text, artifact: artifact}
	}
	o.mu.Unlock()

	return artifact, nil
}
