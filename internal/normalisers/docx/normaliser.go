// Package docx provides a Normaliser for Word documents.
package docx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/ooxml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const documentPart = "word/document.xml"

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindDOCX
}

// Normalise joins the paragraphs of word/document.xml with newlines.
// Table cells are read through the same paragraph path, in document order.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := ooxml.Open(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx package: %v", domain.ErrInvalidInput, err)
	}

	data, err := ooxml.ReadPart(reader, documentPart)
	if errors.Is(err, ooxml.ErrPartNotFound) {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, documentPart)
	}
	if err != nil {
		return nil, err
	}

	paragraphs, err := ooxml.Paragraphs(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	title := ooxml.Title(reader)
	if title == "" {
		title = domain.TitleFromPath(raw.Path)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.Path,
		Title:     title,
		Kind:      domain.KindDOCX,
		Content:   strings.TrimSpace(strings.Join(paragraphs, "\n")),
		Metadata:  map[string]any{"format": "docx", "paragraphs": len(paragraphs)},
		CreatedAt: time.Now(),
	}
	return []domain.Document{doc}, nil
}
