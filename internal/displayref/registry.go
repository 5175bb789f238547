// Package displayref issues and revokes the local handles a view uses to
// render a compiled PDF. A handle stays resolvable until it is revoked.
package displayref

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ahrav/go-texpreview/internal/domain"
)

// ErrNilArtifact is returned when Create is given nothing to display.
var ErrNilArtifact = errors.New("cannot create a display reference for a nil artifact")

// Registry holds the live display references.
type Registry struct {
	basePath string

	mu   sync.RWMutex
	live map[string]*domain.Artifact

	created atomic.Int64
	revoked atomic.Int64
}

// NewRegistry creates a registry whose reference URLs start with basePath.
func NewRegistry(basePath string) *Registry {
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return &Registry{
		basePath: basePath,
		live:     make(map[string]*domain.Artifact),
	}
}

// Create makes a new live reference to artifact.
func (r *Registry) Create(artifact *domain.Artifact) (domain.DisplayRef, error) {
	if artifact == nil {
		return domain.DisplayRef{}, ErrNilArtifact
	}

	id := uuid.New().String()

	r.mu.Lock()
	r.live[id] = artifact
	r.mu.Unlock()

	r.created.Add(1)
	return domain.DisplayRef{ID: id, URL: r.basePath + id}, nil
}

// Revoke releases ref. It reports whether ref was live; revoking twice is a no-op.
func (r *Registry) Revoke(ref domain.DisplayRef) bool {
	r.mu.Lock()
	_, ok := r.live[ref.ID]
	delete(r.live, ref.ID)
	r.mu.Unlock()

	if ok {
		r.revoked.Add(1)
	}
	return ok
}

// Lookup resolves a live reference id to its artifact.
func (r *Registry) Lookup(id string) (*domain.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	artifact, ok := r.live[id]
	return artifact, ok
}

// Stats counts references over the registry's lifetime.
type Stats struct {
	Created int64 `json:"created"`
	Revoked int64 `json:"revoked"`
	Live    int   `json:"live"`
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	live := len(r.live)
	r.mu.RUnlock()

	return Stats{
		Created: r.created.Load(),
		Revoked: r.revoked.Load(),
		Live:    live,
	}
}
