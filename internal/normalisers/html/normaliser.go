package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// Normaliser handles HTML documents.
type Normaliser struct {
	converter *md.Converter
}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{converter: md.NewConverter("", true, nil)}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindHTML
}

// Normalise converts the HTML body to markdown text.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", domain.ErrInvalidInput, err)
	}

	title := strings.TrimSpace(page.Find("title").First().Text())
	if title == "" {
		title = domain.TitleFromPath(raw.Path)
	}

	page.Find("script, style, noscript, svg, head").Remove()

	body := page.Find("body")
	if body.Length() == 0 {
		body = page.Selection
	}

	content := n.converter.Convert(body)
	if strings.TrimSpace(content) == "" {
		// Fall back to raw text when conversion drops everything.
		content = body.Text()
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.Path,
		Title:     title,
		Kind:      domain.KindHTML,
		Content:   cleanText(content),
		Metadata:  map[string]any{"format": "html"},
		CreatedAt: time.Now(),
	}
	return []domain.Document{doc}, nil
}

// cleanText trims each line and collapses runs of blank lines.
func cleanText(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
