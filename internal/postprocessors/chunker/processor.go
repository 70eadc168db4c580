// Package chunker provides a recursive character text splitter.
//
// Text is split on the first separator that occurs in it, from coarse
// (paragraphs) to fine (single characters). Pieces are merged into windows of
// at most the chunk size with a trailing overlap carried into the next window.
// Pieces still too large are split again with the remaining separators.
// All sizes count runes.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators returns the separators tried in order.
// The empty separator splits between characters and always matches.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", " ", ""}
}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators sets the separators tried from coarse to fine.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = append([]string(nil), separators...)
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators(),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for new text in every window.
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Every chunk is a contiguous substring of the content and inherits the
// document's metadata.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, domain.ErrEmptyDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    text,
			Position:   i,
			Metadata:   domain.CopyMetadata(doc.Metadata),
		})
	}
	return chunks, nil
}

// Split returns the chunk texts for content.
func (p *Processor) Split(content string) []string {
	return p.split(content, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	separator, remaining := pickSeparator(text, separators)

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) <= p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, p.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			out = append(out, p.hardSplit(piece)...)
			continue
		}
		out = append(out, p.split(piece, remaining)...)
	}
	if len(good) > 0 {
		out = append(out, p.merge(good)...)
	}
	return out
}

// pickSeparator returns the first separator present in text and the finer
// separators after it.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	// None of the separators occur: the text can only be cut by length.
	return "", nil
}

// splitKeep splits text on sep, keeping sep at the end of each piece so the
// pieces concatenate back to text. An empty separator splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	return strings.SplitAfter(text, sep)
}

// merge packs pieces into windows of at most chunkSize runes. After a window
// is emitted, whole pieces from its tail totalling at most overlap runes start
// the next window.
func (p *Processor) merge(pieces []string) []string {
	var (
		out     []string
		current []string
		total   int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			out = appendChunk(out, strings.Join(current, ""))
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if len(current) > 0 {
		out = appendChunk(out, strings.Join(current, ""))
	}
	return out
}

// hardSplit cuts text into windows of chunkSize runes, stepping by
// chunkSize-overlap.
func (p *Processor) hardSplit(text string) []string {
	runes := []rune(text)
	step := p.chunkSize - p.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = appendChunk(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// appendChunk trims surrounding whitespace and drops blank chunks.
func appendChunk(out []string, text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	return append(out, text)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
