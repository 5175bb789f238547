// Package worker provides initialization and registration helpers for the
// Temporal render worker.
package worker

import (
	"fmt"

	"github.com/ahrav/go-texpreview/internal/artifactstore"
	"github.com/ahrav/go-texpreview/internal/compile"
	"github.com/ahrav/go-texpreview/internal/compile/configuration"
)

// InitializeCompileClient creates the compile client the activities use.
// Returns the client for dependency injection rather than setting global state.
func InitializeCompileClient(cfg *configuration.Config, opts ...compile.Option) (compile.Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}

	client, err := compile.NewClient(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize compile client: %w", err)
	}

	return client, nil
}

// InitializeArtifactStore creates the store rendered PDFs are kept in.
// Returns an in-memory store; artifacts do not outlive the worker process.
func InitializeArtifactStore() artifactstore.Store {
	return artifactstore.NewInMemoryStore()
}
