package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// BlockSeparator joins context blocks.
const BlockSeparator = "\n\n---\n\n"

// Assembler turns a retrieved set into a bounded context block.
type Assembler struct {
	budget int
	policy domain.TruncationPolicy
}

// NewAssembler creates an assembler from the pipeline's context settings.
func NewAssembler(p *Pipeline) *Assembler {
	return &Assembler{
		budget: p.settings.Context.Budget,
		policy: p.settings.Context.Truncation,
	}
}

// Assemble groups chunks by source and renders them within the rune budget.
func (a *Assembler) Assemble(set *domain.RetrievedSet) *domain.AssembledContext {
	if set.IsEmpty() {
		return &domain.AssembledContext{}
	}
	if a.policy == domain.TruncateCut {
		return a.cut(set.Chunks)
	}
	return a.dropChunks(set.Chunks)
}

// cut renders every chunk and cuts the text at the budget.
func (a *Assembler) cut(chunks []domain.ScoredChunk) *domain.AssembledContext {
	text, starts := render(domain.GroupChunks(chunks))
	if utf8.RuneCountInString(text) <= a.budget {
		return &domain.AssembledContext{Text: text, Included: len(chunks)}
	}

	included := 0
	for _, start := range starts {
		if start < a.budget {
			included++
		}
	}
	return &domain.AssembledContext{
		Text:      truncateRunes(text, a.budget),
		Included:  included,
		Dropped:   len(chunks) - included,
		Truncated: true,
	}
}

// dropChunks admits whole chunks in rank order while the grouped rendering
// still fits. When even the top chunk is too large it is cut instead.
func (a *Assembler) dropChunks(chunks []domain.ScoredChunk) *domain.AssembledContext {
	var (
		admitted []domain.ScoredChunk
		text     string
	)
	for _, c := range chunks {
		candidate, _ := render(domain.GroupChunks(append(admitted, c)))
		if utf8.RuneCountInString(candidate) > a.budget {
			break
		}
		admitted = append(admitted, c)
		text = candidate
	}

	if len(admitted) == 0 {
		ctx := a.cut(chunks[:1])
		ctx.Dropped = len(chunks) - ctx.Included
		return ctx
	}

	return &domain.AssembledContext{
		Text:      text,
		Included:  len(admitted),
		Dropped:   len(chunks) - len(admitted),
		Truncated: len(admitted) < len(chunks),
	}
}

// render serialises grouped chunks and returns the rune offset of each block.
func render(groups []domain.SourceGroup) (string, []int) {
	var (
		b      strings.Builder
		starts []int
		offset int
	)
	for _, g := range groups {
		for i, c := range g.Chunks {
			if b.Len() > 0 {
				b.WriteString(BlockSeparator)
				offset += utf8.RuneCountInString(BlockSeparator)
			}
			starts = append(starts, offset)
			block := fmt.Sprintf("[Document: %s | Chunk %d]\n%s", g.Source, i+1, c.Content)
			b.WriteString(block)
			offset += utf8.RuneCountInString(block)
		}
	}
	return b.String(), starts
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
