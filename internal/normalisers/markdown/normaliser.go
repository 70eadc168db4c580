// Package markdown provides a Normaliser for Markdown files.
// The markdown source is kept as-is so headings and lists survive into chunks.
package markdown

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindMarkdown
}

// Normalise returns the markdown source as a single document.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", domain.ErrInvalidInput)
	}

	content := string(raw.Content)
	doc := domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.Path,
		Title:     extractMarkdownTitle(content, raw.Path),
		Kind:      domain.KindMarkdown,
		Content:   content,
		Metadata:  map[string]any{"format": "markdown"},
		CreatedAt: time.Now(),
	}
	return []domain.Document{doc}, nil
}

// extractMarkdownTitle returns the first H1 heading or falls back to the file name.
func extractMarkdownTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return domain.TitleFromPath(uri)
}
