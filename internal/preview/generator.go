package preview

import (
	"context"
	"fmt"
	"os"
)

// Generator produces the LaTeX source for a report.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context) (string, error) { return f(ctx) }

// FileGenerator reads the source from a file on every call.
type FileGenerator struct {
	Path string
}

// Generate implements Generator.
func (g FileGenerator) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(g.Path)
	if err != nil {
		return "", fmt.Errorf("read document source %s: %w", g.Path, err)
	}
	return string(raw), nil
}

// Regenerate clears the preview, asks gen for a fresh document and feeds it
// to OnDocumentChanged. On a generator error the preview stays idle.
func (o *Orchestrator) Regenerate(ctx context.Context, gen Generator) error {
	if err := o.OnDocumentChanged(""); err != nil {
		return err
	}

	text, err := gen.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate document: %w", err)
	}
	return o.OnDocumentChanged(text)
}
