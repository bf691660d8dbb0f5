package core

import (
	"context"
	"io"
	"strings"
)

// Completer sends an instruction to a text-completion engine and returns
// its raw output.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TableSynthesizer trains on a single table and samples synthetic rows.
type TableSynthesizer interface {
	Train(ctx context.Context, t *Table) (ModelHandle, error)
	Sample(ctx context.Context, h ModelHandle, rows int) (*Table, error)
}

// RelationalSynthesizer trains on related tables described by a schema and
// samples all of them at once. A scale of 1 reproduces the training sizes.
type RelationalSynthesizer interface {
	Train(ctx context.Context, s *Schema, tables []*Table) (ModelHandle, error)
	Sample(ctx context.Context, h ModelHandle, scale float64) ([]*Table, error)
}

// ArtifactStore persists serialized tables. Put overwrites any existing
// artifact under the same key; the last writer wins.
type ArtifactStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (location string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// promptTemplate is the fixed instruction wrapped around every user prompt.
const promptTemplate = `Generate a dataset ONLY in valid CSV format (no markdown, no extra text). Include headers and data rows. For example:
Name,Age,Grade
Alice,20,A
Bob,22,B

Prompt: `

// BuildPrompt embeds the user's request in the fixed CSV instruction.
func BuildPrompt(userPrompt string) string {
	return promptTemplate + strings.TrimSpace(userPrompt)
}
