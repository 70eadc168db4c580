// Package pptx provides a Normaliser for PowerPoint presentations.
package pptx

import (
	"archive/zip"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/ooxml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Normaliser handles PPTX documents.
type Normaliser struct{}

// New creates a new PPTX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Kind returns the document kind this normaliser handles.
func (n *Normaliser) Kind() domain.DocumentKind {
	return domain.KindPPTX
}

// Normalise renders each slide as "Slide N:" followed by its text lines.
// Slides are read in numeric order and slides without text are skipped.
func (n *Normaliser) Normalise(_ context.Context, raw *driven.RawFile) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := ooxml.Open(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: not a pptx package: %v", domain.ErrInvalidInput, err)
	}

	slides := slideNumbers(reader)
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides found", domain.ErrInvalidInput)
	}

	var blocks []string
	for _, num := range slides {
		data, err := ooxml.ReadPart(reader, fmt.Sprintf("ppt/slides/slide%d.xml", num))
		if err != nil {
			return nil, err
		}
		paragraphs, err := ooxml.Paragraphs(data)
		if err != nil {
			return nil, fmt.Errorf("%w: slide %d: %v", domain.ErrInvalidInput, num, err)
		}

		var lines []string
		for _, p := range paragraphs {
			if p = strings.TrimSpace(p); p != "" {
				lines = append(lines, p)
			}
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Slide %d:\n%s", num, strings.Join(lines, "\n")))
	}

	title := ooxml.Title(reader)
	if title == "" {
		title = domain.TitleFromPath(raw.Path)
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.Path,
		Title:     title,
		Kind:      domain.KindPPTX,
		Content:   strings.Join(blocks, "\n\n"),
		Metadata:  map[string]any{"format": "pptx", "slide_count": len(slides)},
		CreatedAt: time.Now(),
	}
	return []domain.Document{doc}, nil
}

// slideNumbers returns the slide numbers present in the package, ascending.
// Sorting is numeric so slide10 follows slide9.
func slideNumbers(reader *zip.Reader) []int {
	var nums []int
	for _, file := range reader.File {
		m := slidePart.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}
