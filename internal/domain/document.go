package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DocumentKey is the SHA-256 hex digest identifying a source document for a
// given compiler. Two documents with the same key compile to the same artifact.
type DocumentKey string

// SourceDocument is the compilable LaTeX source captured for one compile attempt.
// It is immutable once captured.
type SourceDocument struct {
	Text     string
	Compiler string
}

// NewSourceDocument captures text for compilation with compiler.
func NewSourceDocument(text, compiler string) SourceDocument {
	return SourceDocument{Text: text, Compiler: compiler}
}

// IsBlank reports whether the document is empty or whitespace-only.
func (d SourceDocument) IsBlank() bool { return IsBlank(d.Text) }

// Key returns the document's identity. The compiler is part of the key since
// the same source compiles differently under pdflatex and xelatex.
func (d SourceDocument) Key() DocumentKey {
	h := sha256.New()
	h.Write([]byte(d.Compiler))
	h.Write([]byte{0})
	h.Write([]byte(d.Text))
	return DocumentKey(hex.EncodeToString(h.Sum(nil)))
}

// IsBlank reports whether text is empty or whitespace-only.
func IsBlank(text string) bool { return strings.TrimSpace(text) == "" }
