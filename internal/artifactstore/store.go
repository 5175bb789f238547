// Package artifactstore keeps compiled outputs addressable by key so that
// workflow payloads carry references instead of PDF bytes.
package artifactstore

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/go-texpreview/internal/domain"
)

// Artifact store errors.
var (
	ErrArtifactKeyEmpty = errors.New("artifact key cannot be empty")
	ErrArtifactNotFound = errors.New("artifact not found")
)

// Store provides content storage and retrieval for render outputs.
type Store interface {
	// Put stores data under key and returns a reference to it.
	Put(ctx context.Context, data []byte, kind domain.ArtifactKind, key string) (domain.ArtifactRef, error)

	// Get retrieves the content behind ref.
	Get(ctx context.Context, ref domain.ArtifactRef) ([]byte, error)

	// Exists checks presence without retrieving content.
	Exists(ctx context.Context, ref domain.ArtifactRef) (bool, error)

	// Delete removes the content behind ref. Deleting a missing key is not an error.
	Delete(ctx context.Context, ref domain.ArtifactRef) error
}

// InMemoryStore is a process-local Store for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]byte)}
}

// Put implements Store. The data is copied.
func (s *InMemoryStore) Put(ctx context.Context, data []byte, kind domain.ArtifactKind, key string) (domain.ArtifactRef, error) {
	if key == "" {
		return domain.ArtifactRef{}, ErrArtifactKeyEmpty
	}
	if err := ctx.Err(); err != nil {
		return domain.ArtifactRef{}, err
	}

	ref := domain.ArtifactRef{Key: key, Size: int64(len(data)), Kind: kind}
	if err := ref.Validate(); err != nil {
		return domain.ArtifactRef{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage[key] = append([]byte(nil), data...)

	return ref, nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, ref domain.ArtifactRef) ([]byte, error) {
	if ref.Key == "" {
		return nil, ErrArtifactKeyEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.storage[ref.Key]
	if !exists {
		return nil, ErrArtifactNotFound
	}
	return append([]byte(nil), data...), nil
}

// Exists implements Store.
func (s *InMemoryStore) Exists(_ context.Context, ref domain.ArtifactRef) (bool, error) {
	if ref.Key == "" {
		return false, ErrArtifactKeyEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.storage[ref.Key]
	return exists, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, ref domain.ArtifactRef) error {
	if ref.Key == "" {
		return ErrArtifactKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storage, ref.Key)
	return nil
}
