package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_JSON(t *testing.T) {
	for _, p := range []Phase{PhaseIdle, PhaseCompiling, PhaseReady, PhaseFailed} {
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		assert.Equal(t, `"`+p.String()+`"`, string(raw))

		var got Phase
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, p, got)
	}

	var p Phase
	assert.Error(t, json.Unmarshal([]byte(`"paused"`), &p))
}

func TestPipelineState_JSON(t *testing.T) {
	st := PipelineState{
		Phase:       PhaseReady,
		DocumentKey: NewSourceDocument("x", "xelatex").Key(),
		Ref:         &DisplayRef{ID: "abc", URL: "/preview/abc"},
	}

	raw, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ready", decoded["phase"])
	assert.NotContains(t, decoded, "error")
	assert.NotContains(t, decoded, "artifact")
}

func TestRenderRequest_Validate(t *testing.T) {
	valid := RenderRequest{JobID: uuid.NewString(), Document: `\relax`, TimeoutSeconds: 30}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mut  func(*RenderRequest)
	}{
		{"missing job id", func(r *RenderRequest) { r.JobID = "" }},
		{"job id not a uuid", func(r *RenderRequest) { r.JobID = "job-1" }},
		{"missing document", func(r *RenderRequest) { r.Document = "" }},
		{"negative timeout", func(r *RenderRequest) { r.TimeoutSeconds = -1 }},
		{"timeout too long", func(r *RenderRequest) { r.TimeoutSeconds = MaxRenderTimeoutSeconds + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mut(&req)
			assert.ErrorIs(t, req.Validate(), ErrInvalidRenderRequest)
		})
	}
}

func TestRenderResult_Validate(t *testing.T) {
	res := RenderResult{
		JobID:       uuid.NewString(),
		DocumentKey: NewSourceDocument("x", "xelatex").Key(),
		PDF:         ArtifactRef{Key: "pdf/a/b.pdf", Size: 10, Kind: ArtifactPDF},
	}
	require.NoError(t, res.Validate())

	res.PDF = ArtifactRef{}
	assert.Error(t, res.Validate())
}
