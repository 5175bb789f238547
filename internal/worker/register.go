package worker

import (
	"go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	internalactivity "github.com/ahrav/go-texpreview/internal/activity"
	"github.com/ahrav/go-texpreview/internal/artifactstore"
	"github.com/ahrav/go-texpreview/internal/compile"
	"github.com/ahrav/go-texpreview/internal/workflow"
)

// Registry is the part of a Temporal worker RegisterAll needs.
// sdkworker.Worker satisfies it.
type Registry interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

var _ Registry = sdkworker.Worker(nil)

// RegisterAll registers the render workflow and its activity. It must be
// called once during worker initialization, before the worker starts.
func RegisterAll(w Registry, client compile.Client, store artifactstore.Store) {
	if store == nil {
		store = InitializeArtifactStore()
	}

	acts := internalactivity.NewActivities(client, store)

	w.RegisterWorkflow(workflow.RenderWorkflow)
	w.RegisterActivityWithOptions(acts.RenderDocument, activity.RegisterOptions{Name: workflow.RenderActivityName})
}
