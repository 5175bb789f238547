// Package preview keeps a live PDF preview in step with a changing LaTeX
// document. Each document change starts a compile attempt; only the newest
// attempt's outcome is ever applied, and at most one display reference is
// live at a time.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ahrav/go-texpreview/internal/compile/configuration"
	compileerrors "github.com/ahrav/go-texpreview/internal/compile/errors"
	"github.com/ahrav/go-texpreview/internal/domain"
)

// ErrClosed is returned by every operation after teardown.
var ErrClosed = errors.New("preview orchestrator is closed")

// Compiler produces a PDF from LaTeX source. compile.Client satisfies it.
type Compiler interface {
	Compile(ctx context.Context, document string) (*domain.Artifact, error)
}

// References issues and revokes display references. *displayref.Registry
// satisfies it.
type References interface {
	Create(artifact *domain.Artifact) (domain.DisplayRef, error)
	Revoke(ref domain.DisplayRef) bool
}

// attempt is one background compile. Its identity is the pointer itself; the
// id exists for logs.
type attempt struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

// lastSuccess caches the artifact for one exact source text.
type lastSuccess struct {
	source   string
	artifact *domain.Artifact
}

// Orchestrator owns the preview state for one document.
type Orchestrator struct {
	compiler     Compiler
	refs         References
	compilerName string
	logger       *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu      sync.Mutex
	closed  bool
	source  string
	current *attempt
	cache   *lastSuccess
	state   domain.PipelineState
	subs    map[int]chan domain.PipelineState
	nextSub int

	inflight int
	drained  chan struct{} // closed when inflight drops to zero
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.With("component", "preview") }
}

// WithCompilerName sets the engine name folded into document keys. It should
// match the compiler the Compiler is configured with.
func WithCompilerName(name string) Option {
	return func(o *Orchestrator) { o.compilerName = name }
}

// NewOrchestrator creates an idle orchestrator.
func NewOrchestrator(compiler Compiler, refs References, opts ...Option) *Orchestrator {
	baseCtx, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		compiler:     compiler,
		refs:         refs,
		compilerName: configuration.DefaultCompiler,
		logger:       slog.Default().With("component", "preview"),
		baseCtx:      baseCtx,
		stop:         stop,
		subs:         make(map[int]chan domain.PipelineState),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnDocumentChanged reacts to a new version of the document. A blank
// document clears the preview. Anything else cancels the in-flight attempt
// and starts a new one; the current preview stays visible until the new
// attempt settles. Resubmitting the document that is already compiling or
// displayed is a no-op, while resubmitting a failed one retries it.
func (o *Orchestrator) OnDocumentChanged(text string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrClosed
	}

	if domain.IsBlank(text) {
		o.clearLocked(text)
		return nil
	}

	if text == o.source && (o.state.Phase == domain.PhaseCompiling || o.state.Phase == domain.PhaseReady) {
		return nil
	}

	o.cancelCurrentLocked()
	if o.cache != nil && o.cache.source != text {
		o.cache = nil
	}
	o.source = text

	ctx, cancel := context.WithCancel(o.baseCtx)
	a := &attempt{id: uuid.New().String(), ctx: ctx, cancel: cancel}
	o.current = a

	o.state = domain.PipelineState{
		Phase:       domain.PhaseCompiling,
		DocumentKey: domain.NewSourceDocument(text, o.compilerName).Key(),
		Artifact:    o.state.Artifact,
		Ref:         o.state.Ref,
	}
	o.publishLocked()

	o.logger.Debug("compile attempt started", "attempt_id", a.id, "document_key", o.state.DocumentKey)

	if o.inflight == 0 {
		o.drained = make(chan struct{})
	}
	o.inflight++
	go o.run(a, text)
	return nil
}

func (o *Orchestrator) run(a *attempt, text string) {
	defer o.finish()
	artifact, err := o.compiler.Compile(a.ctx, text)
	o.settle(a, artifact, err)
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.inflight--
	if o.inflight == 0 {
		close(o.drained)
	}
}

// settle applies an attempt's outcome if the attempt is still current.
func (o *Orchestrator) settle(a *attempt, artifact *domain.Artifact, err error) {
	defer a.cancel()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != a {
		o.logger.Debug("discarding stale compile outcome",
			"attempt_id", a.id,
			"succeeded", err == nil)
		return
	}
	o.current = nil

	if err == nil && artifact == nil {
		err = compileerrors.NewUnexpectedContent(0, "compiler returned no artifact", "", nil)
	}

	if err == nil {
		ref, refErr := o.refs.Create(artifact)
		if refErr != nil {
			err = compileerrors.NewUnexpectedContent(0, "cannot display artifact", "", refErr)
		} else {
			o.swapRefLocked(&ref)
			o.cache = &lastSuccess{source: o.source, artifact: artifact}
			o.state = domain.PipelineState{
				Phase:       domain.PhaseReady,
				DocumentKey: o.state.DocumentKey,
				Artifact:    artifact,
				Ref:         &ref,
			}
			o.publishLocked()
			return
		}
	}

	ce := compileerrors.Classify(a.ctx, err)
	if ce.Type == compileerrors.ErrorTypeCancelled {
		// Only a compiler that gives up on its own lands here; our own
		// cancellations always replace o.current first.
		o.logger.Warn("current compile attempt reported cancellation", "attempt_id", a.id)
		ce = compileerrors.NewNetwork("compile attempt was interrupted", err)
	}

	o.swapRefLocked(nil)
	o.state = domain.PipelineState{
		Phase:       domain.PhaseFailed,
		DocumentKey: o.state.DocumentKey,
		Err:         ce,
	}
	o.publishLocked()
}

// swapRefLocked installs next as the live reference and revokes the previous
// one. Callers create next before calling, so the view never points at a
// revoked reference.
func (o *Orchestrator) swapRefLocked(next *domain.DisplayRef) {
	prev := o.state.Ref
	o.state.Ref = next
	if prev != nil {
		o.refs.Revoke(*prev)
	}
}

func (o *Orchestrator) cancelCurrentLocked() {
	if o.current != nil {
		o.current.cancel()
		o.current = nil
	}
}

func (o *Orchestrator) clearLocked(text string) {
	o.cancelCurrentLocked()
	o.swapRefLocked(nil)
	o.source = text
	o.cache = nil
	o.state = domain.PipelineState{Phase: domain.PhaseIdle}
	o.publishLocked()
}

// OnTeardown cancels all work, revokes the live reference and closes
// subscriptions. The orchestrator is unusable afterwards.
func (o *Orchestrator) OnTeardown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	o.clearLocked("")
	o.closed = true
	o.stop()

	for id, ch := range o.subs {
		close(ch)
		delete(o.subs, id)
	}
	o.logger.Debug("preview torn down")
}

// Wait blocks until no background attempt is running. Outcomes of
// cancelled attempts are discarded as they arrive. It is safe to call while
// other goroutines submit documents; attempts started after Wait observed an
// idle orchestrator are not waited for.
func (o *Orchestrator) Wait() {
	for {
		o.mu.Lock()
		if o.inflight == 0 {
			o.mu.Unlock()
			return
		}
		ch := o.drained
		o.mu.Unlock()
		<-ch
	}
}

// State returns a snapshot of the pipeline state.
func (o *Orchestrator) State() domain.PipelineState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SourceText returns the current document verbatim.
func (o *Orchestrator) SourceText() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return []byte(o.source)
}

// Subscribe returns a channel that receives the current state and then every
// change. Slow readers only see the latest state. The channel is closed on
// teardown or when cancel is called.
func (o *Orchestrator) Subscribe() (<-chan domain.PipelineState, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan domain.PipelineState, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}

	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	ch <- o.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if sub, ok := o.subs[id]; ok {
				close(sub)
				delete(o.subs, id)
			}
		})
	}
}

// publishLocked delivers the state to every subscriber, replacing any
// undelivered older state.
func (o *Orchestrator) publishLocked() {
	for _, ch := range o.subs {
		select {
		case <-ch:
		default:
		}
		ch <- o.state
	}
}
