package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Sources section layout.
const (
	sourcesRule       = 60
	maxPreviews       = 3
	previewRunes      = 150
	previewEllipsis   = "..."
	sourcesHeaderText = "📚 **Sources Used** (%d document(s), %d chunk(s))"
)

// Synthesizer asks the chat model for an answer grounded in the context.
type Synthesizer struct {
	p *Pipeline
}

// NewSynthesizer creates a synthesizer over the pipeline.
func NewSynthesizer(p *Pipeline) *Synthesizer {
	return &Synthesizer{p: p}
}

// Messages builds the system and user messages for a question.
func (s *Synthesizer) Messages(question string, assembled *domain.AssembledContext) ([]driven.ChatMessage, error) {
	system, err := s.p.prompts.Load(driven.PromptRAGSystem)
	if err != nil {
		return nil, fmt.Errorf("load %s prompt: %w", driven.PromptRAGSystem, err)
	}
	template, err := s.p.prompts.Load(driven.PromptRAGQuestion)
	if err != nil {
		return nil, fmt.Errorf("load %s prompt: %w", driven.PromptRAGQuestion, err)
	}

	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: fmt.Sprintf(template, assembled.Text, question)},
	}, nil
}

// Synthesize returns the raw model answer.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, assembled *domain.AssembledContext) (string, error) {
	messages, err := s.Messages(question, assembled)
	if err != nil {
		return "", err
	}
	answer, err := s.p.llm.Chat(ctx, messages, driven.ChatOptions{
		Temperature: s.p.settings.LLM.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return answer, nil
}

// SummariseSources describes each source's contribution to a retrieved set.
func SummariseSources(set *domain.RetrievedSet) []domain.SourceSummary {
	groups := set.GroupBySource()
	out := make([]domain.SourceSummary, 0, len(groups))
	for _, g := range groups {
		summary := domain.SourceSummary{Source: g.Source, ChunkCount: len(g.Chunks)}
		for _, c := range g.Chunks[:min(maxPreviews, len(g.Chunks))] {
			summary.Previews = append(summary.Previews, Preview(c.Content))
		}
		out = append(out, summary)
	}
	return out
}

// FormatSources renders the sources section appended to every answer.
func FormatSources(summaries []domain.SourceSummary) string {
	chunks := 0
	for _, s := range summaries {
		chunks += s.ChunkCount
	}

	rule := strings.Repeat("=", sourcesRule)
	var b strings.Builder
	b.WriteString("\n\n" + rule + "\n")
	fmt.Fprintf(&b, sourcesHeaderText, len(summaries), chunks)
	b.WriteString("\n" + rule + "\n\n")

	for _, s := range summaries {
		fmt.Fprintf(&b, "📄 **%s** (%d chunk(s))\n", s.Source, s.ChunkCount)
		for i, preview := range s.Previews {
			fmt.Fprintf(&b, "   • Chunk %d: _%s_\n", i+1, preview)
		}
		if more := s.ChunkCount - len(s.Previews); more > 0 {
			fmt.Fprintf(&b, "   • ... and %d more chunk(s)\n", more)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Preview takes the first 150 runes of content with newlines flattened.
// "..." marks content that was longer.
func Preview(content string) string {
	head := truncateRunes(content, previewRunes)
	preview := strings.TrimSpace(strings.ReplaceAll(head, "\n", " "))
	if utf8.RuneCountInString(content) > previewRunes {
		preview += previewEllipsis
	}
	return preview
}
