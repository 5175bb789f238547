package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-texpreview/internal/domain"
)

// RenderActivityName is the registered name of the render activity.
const RenderActivityName = "RenderDocument"

// DefaultRenderTimeout bounds one render attempt when the request sets none.
const DefaultRenderTimeout = 3 * time.Minute

// RenderWorkflow compiles a document and returns references to the stored
// PDF and build log. Transient compile failures are retried by the activity
// retry policy; rejected documents fail the workflow with the compiler's
// classification as the error type.
func RenderWorkflow(ctx workflow.Context, req domain.RenderRequest) (*domain.RenderResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "render.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid render request", "Validation", err)
	}

	timeout := DefaultRenderTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result domain.RenderResult
	if err := workflow.ExecuteActivity(ctx, RenderActivityName, req).Get(ctx, &result); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("render completed",
		"job_id", result.JobID,
		"pdf_key", result.PDF.Key)
	return &result, nil
}
