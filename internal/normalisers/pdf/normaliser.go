// Package pdf provides a Normaliser for PDF files.
// Each page with text becomes its own document so answers can cite pages.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindPDF
}

// Normalise extracts plain text page by page.
// Pages without text are skipped. Metadata records the 1-based page number.
func (n *Normaliser) Normalise(ctx context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", domain.ErrInvalidInput, err)
	}

	leaves, err := pageTree(reader)
	if err != nil {
		return nil, err
	}

	title := domain.TitleFromPath(raw.Path)
	total := len(leaves)
	docs := make([]domain.Document, 0, total)

	for idx, leaf := range leaves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		i := idx + 1
		page := pdf.Page{V: leaf}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("pdf %s: failed to extract page %d: %v", raw.Name, i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, domain.Document{
			ID:      uuid.New().String(),
			URI:     raw.Path,
			Title:   title,
			Kind:    domain.KindPDF,
			Content: text,
			Metadata: map[string]any{
				"format":        "pdf",
				domain.MetaPage: i,
				"total_pages":   total,
			},
			CreatedAt: time.Now(),
		})
	}

	return docs, nil
}

// maxTreeDepth bounds the nesting of intermediate /Pages nodes.
const maxTreeDepth = 64

// pageTree walks /Root /Pages and returns the leaf page dictionaries in
// document order. The reader's own page lookup trusts /Count and /Kids and
// never returns on a malformed tree, so the tree is validated here first.
func pageTree(reader *pdf.Reader) (leaves []pdf.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			leaves = nil
			err = fmt.Errorf("%w: malformed page tree: %v", domain.ErrInvalidInput, r)
		}
	}()

	root := reader.Trailer().Key("Root").Key("Pages")
	if root.Key("Type").Name() != "Pages" {
		return nil, fmt.Errorf("%w: missing page tree", domain.ErrInvalidInput)
	}

	// Dictionaries render their references unresolved, so a node's text
	// identifies it without following its kids.
	seen := make(map[string]bool)

	var walk func(node pdf.Value, depth int) error
	walk = func(node pdf.Value, depth int) error {
		if depth > maxTreeDepth {
			return fmt.Errorf("%w: page tree deeper than %d", domain.ErrInvalidInput, maxTreeDepth)
		}
		key := node.String()
		if seen[key] {
			return fmt.Errorf("%w: page tree revisits a node", domain.ErrInvalidInput)
		}
		seen[key] = true

		kids := node.Key("Kids")
		if kids.Kind() != pdf.Array {
			return fmt.Errorf("%w: /Kids is not an array", domain.ErrInvalidInput)
		}
		for i := 0; i < kids.Len(); i++ {
			kid := kids.Index(i)
			switch kid.Key("Type").Name() {
			case "Pages":
				if err := walk(kid, depth+1); err != nil {
					return err
				}
			case "Page":
				leaves = append(leaves, kid)
			default:
				return fmt.Errorf("%w: page tree entry %d is not a page", domain.ErrInvalidInput, i)
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	return leaves, nil
}
