package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-texpreview/internal/domain"
)

func validRequest() domain.RenderRequest {
	return domain.RenderRequest{
		JobID:    uuid.New().String(),
		Document: `\documentclass{article}\begin{document}Hi\end{document}`,
	}
}

func renderStub(_ context.Context, _ domain.RenderRequest) (*domain.RenderResult, error) {
	return nil, nil
}

func TestRenderWorkflow_Success(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(renderStub, activity.RegisterOptions{Name: RenderActivityName})

	req := validRequest()
	want := &domain.RenderResult{
		JobID:       req.JobID,
		DocumentKey: domain.NewSourceDocument(req.Document, "xelatex").Key(),
		PDF:         domain.ArtifactRef{Key: "pdf/" + req.JobID + "/x.pdf", Size: 4, Kind: domain.ArtifactPDF},
	}
	env.OnActivity(RenderActivityName, mock.Anything, req).Return(want, nil).Once()

	env.ExecuteWorkflow(RenderWorkflow, req)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var got domain.RenderResult
	require.NoError(t, env.GetWorkflowResult(&got))
	assert.Equal(t, *want, got)
	env.AssertExpectations(t)
}

func TestRenderWorkflow_InvalidRequest(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	env.ExecuteWorkflow(RenderWorkflow, domain.RenderRequest{})
	require.True(t, env.IsWorkflowCompleted())

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, env.GetWorkflowError(), &appErr)
	assert.Equal(t, "Validation", appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestRenderWorkflow_RejectedDocumentIsNotRetried(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(renderStub, activity.RegisterOptions{Name: RenderActivityName})

	req := validRequest()
	env.OnActivity(RenderActivityName, mock.Anything, req).
		Return(nil, temporal.NewNonRetryableApplicationError("LaTeX compilation failed: Undefined control sequence", "service_error", nil)).
		Once()

	env.ExecuteWorkflow(RenderWorkflow, req)
	require.True(t, env.IsWorkflowCompleted())

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, env.GetWorkflowError(), &appErr)
	assert.Equal(t, "service_error", appErr.Type())
	env.AssertExpectations(t)
}

func TestRenderWorkflow_TransientFailureIsRetried(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(renderStub, activity.RegisterOptions{Name: RenderActivityName})

	req := validRequest()
	result := &domain.RenderResult{
		JobID:       req.JobID,
		DocumentKey: domain.NewSourceDocument(req.Document, "xelatex").Key(),
		PDF:         domain.ArtifactRef{Key: "pdf/k.pdf", Size: 4, Kind: domain.ArtifactPDF},
	}
	env.OnActivity(RenderActivityName, mock.Anything, req).
		Return(nil, temporal.NewApplicationError("compile service unreachable", "network")).
		Once()
	env.OnActivity(RenderActivityName, mock.Anything, req).Return(result, nil).Once()

	env.ExecuteWorkflow(RenderWorkflow, req)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertExpectations(t)
}
