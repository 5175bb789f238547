package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactKind_Constants(t *testing.T) {
	assert.Equal(t, "pdf", string(ArtifactPDF))
	assert.Equal(t, "tex_source", string(ArtifactSource))
	assert.Equal(t, "compile_log", string(ArtifactCompileLog))
}

func validArtifact() *Artifact {
	return &Artifact{
		Data:        []byte("%PDF-1.7"),
		ContentType: PDFContentType,
		DocumentKey: NewSourceDocument("hello", "xelatex").Key(),
		RequestID:   uuid.New().String(),
		CompiledAt:  time.Now(),
	}
}

func TestArtifact_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Artifact)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Artifact) {}},
		{name: "empty data", mutate: func(a *Artifact) { a.Data = []byte{} }, wantErr: true},
		{name: "nil data", mutate: func(a *Artifact) { a.Data = nil }, wantErr: true},
		{name: "missing content type", mutate: func(a *Artifact) { a.ContentType = "" }, wantErr: true},
		{name: "short document key", mutate: func(a *Artifact) { a.DocumentKey = "abc" }, wantErr: true},
		{name: "bad request id", mutate: func(a *Artifact) { a.RequestID = "nope" }, wantErr: true},
		{name: "no request id", mutate: func(a *Artifact) { a.RequestID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validArtifact()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestArtifact_Helpers(t *testing.T) {
	a := validArtifact()
	assert.Equal(t, int64(8), a.Size())
	assert.True(t, a.LooksLikePDF())

	a.Data = []byte("<html>")
	assert.False(t, a.LooksLikePDF())
}

func TestArtifactRef_Validate(t *testing.T) {
	require.NoError(t, ArtifactRef{}.Validate())
	assert.True(t, ArtifactRef{}.IsZero())

	require.NoError(t, ArtifactRef{Key: "pdf/2025/08/x.pdf", Size: 10, Kind: ArtifactPDF}.Validate())
	assert.Error(t, ArtifactRef{Key: "pdf/x.pdf"}.Validate(), "key without kind")
	assert.Error(t, ArtifactRef{Kind: ArtifactPDF}.Validate(), "kind without key")
	assert.Error(t, ArtifactRef{Key: "x", Kind: "answer"}.Validate(), "unknown kind")
	assert.Error(t, ArtifactRef{Key: "x", Kind: ArtifactPDF, Size: -1}.Validate())
}

func TestSourceDocument_Key(t *testing.T) {
	a := NewSourceDocument(`\documentclass{article}`, "xelatex")
	b := NewSourceDocument(`\documentclass{article}`, "xelatex")
	c := NewSourceDocument(`\documentclass{article}`, "pdflatex")
	d := NewSourceDocument(`\documentclass{report}`, "xelatex")

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), d.Key())
	assert.Len(t, string(a.Key()), 64)
	assert.Equal(t, strings.ToLower(string(a.Key())), string(a.Key()))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \n\t "))
	assert.False(t, IsBlank(" x "))
	assert.True(t, NewSourceDocument("  ", "xelatex").IsBlank())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "compiling", PhaseCompiling.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "failed", PhaseFailed.String())
	assert.Equal(t, "unknown", Phase(42).String())

	text, err := PhaseReady.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(text))
	assert.True(t, PipelineState{Phase: PhaseCompiling}.Loading())
}
