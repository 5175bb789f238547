package preview_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// pendingCall is one compile waiting for the test to resolve it.
type pendingCall struct {
	doc    string
	ctx    context.Context
	result chan outcome
}

type outcome struct {
	artifact *domain.Artifact
	err      error
}

func (c *pendingCall) succeed(data string) {
	c.result <- outcome{artifact: artifactFor(c.doc, data)}
}

func (c *pendingCall) fail(err error) {
	c.result <- outcome{err: err}
}

// gatedCompiler blocks each Compile until the test resolves it. It ignores
// cancellation unless honorCancel is set, so stale outcomes can be delivered
// after their attempt was superseded.
type gatedCompiler struct {
	honorCancel bool
	calls       chan *pendingCall
}

func newGatedCompiler(honorCancel bool) *gatedCompiler {
	return &gatedCompiler{honorCancel: honorCancel, calls: make(chan *pendingCall, 16)}
}

func (g *gatedCompiler) Compile(ctx context.Context, doc string) (*domain.Artifact, error) {
	if domain.IsBlank(doc) {
		return nil, compileerrors.NewEmptyInput()
	}
	call := &pendingCall{doc: doc, ctx: ctx, result: make(chan outcome, 1)}
	g.calls <- call

	if g.honorCancel {
		select {
		case o := <-call.result:
			return o.artifact, o.err
		case <-ctx.Done():
			return nil, compileerrors.NewCancelled(ctx.Err())
		}
	}
	o := <-call.result
	return o.artifact, o.err
}

func (g *gatedCompiler) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		require.FailNow(t, "expected a compile call")
		return nil
	}
}

// scriptedCompiler answers synchronously from a script and counts calls.
type scriptedCompiler struct {
	mu     sync.Mutex
	script []error
	calls  atomic.Int32
}

func (s *scriptedCompiler) Compile(_ context.Context, doc string) (*domain.Artifact, error) {
	if domain.IsBlank(doc) {
		return nil, compileerrors.NewEmptyInput()
	}
	s.calls.Add(1)

	s.mu.Lock()
	var err error
	if len(s.script) > 0 {
		err, s.script = s.script[0], s.script[1:]
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return artifactFor(doc, "%PDF-"+doc), nil
}

func artifactFor(doc, data string) *domain.Artifact {
	return &domain.Artifact{
		Data:        []byte(data),
		ContentType: domain.PDFContentType,
		DocumentKey: domain.NewSourceDocument(doc, "xelatex").Key(),
		CompiledAt:  time.Now(),
	}
}

func serviceError() *compileerrors.CompileError {
	return compileerrors.NewService(422, "LaTeX compilation failed: Undefined control sequence", "! Undefined control sequence.")
}
