// Package plaintext provides a Normaliser for UTF-8 text files.
package plaintext

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindText
}

// Normalise returns the file's bytes as a single document.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", domain.ErrInvalidInput)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.Path,
		Title:     domain.TitleFromPath(raw.Path),
		Kind:      domain.KindText,
		Content:   string(raw.Content),
		Metadata:  map[string]any{"format": "text"},
		CreatedAt: time.Now(),
	}
	return []domain.Document{doc}, nil
}
