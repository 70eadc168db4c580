// Package transcript renders the conversation in a scrollable viewport.
package transcript

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Welcome is shown while the transcript is empty.
const Welcome = "Ask a question about your indexed documents and press enter.\n" +
	"Type :index <files|dirs|globs> (or press ctrl+r) to add documents."

// Entry is one block of the transcript: a question with its answer,
// or a notice such as an indexing report.
type Entry struct {
	Question string
	Answer   string
	Status   domain.TurnStatus
	Notice   string
}

// FromTurns builds entries from recorded history.
func FromTurns(turns []domain.ConversationTurn) []Entry {
	entries := make([]Entry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, Entry{Question: t.Question, Answer: t.Answer, Status: t.Status})
	}
	return entries
}

// Transcript owns the viewport and the markdown renderer.
type Transcript struct {
	viewport viewport.Model
	styles   *styles.Styles
	markdown *glamour.TermRenderer
	entries  []Entry
}

// New creates an empty transcript.
func New(s *styles.Styles) *Transcript {
	if s == nil {
		s = styles.DefaultStyles()
	}
	t := &Transcript{
		viewport: viewport.New(80, 20),
		styles:   s,
	}
	t.markdown = newRenderer(s.Theme().Markdown, t.viewport.Width)
	t.refresh()
	return t
}

// newRenderer returns nil when glamour cannot load the style;
// answers are then shown as plain text.
func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(max(20, width-4)),
	)
	if err != nil {
		return nil
	}
	return r
}

// Update forwards scroll keys and mouse wheel events to the viewport.
func (t *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the visible part of the transcript.
func (t *Transcript) View() string {
	return t.viewport.View()
}

// SetSize resizes the viewport and rewraps the content.
func (t *Transcript) SetSize(width, height int) {
	if width != t.viewport.Width {
		t.markdown = newRenderer(t.styles.Theme().Markdown, width)
	}
	t.viewport.Width = width
	t.viewport.Height = max(1, height)
	t.refresh()
}

// SetEntries replaces the transcript and scrolls to the bottom.
func (t *Transcript) SetEntries(entries []Entry) {
	t.entries = entries
	t.refresh()
}

// Append adds an entry and scrolls to the bottom.
func (t *Transcript) Append(e Entry) {
	t.entries = append(t.entries, e)
	t.refresh()
}

// Entries returns the current entries.
func (t *Transcript) Entries() []Entry {
	return t.entries
}

// Clear drops every entry.
func (t *Transcript) Clear() {
	t.SetEntries(nil)
}

// PageUp scrolls up one page.
func (t *Transcript) PageUp() {
	t.viewport.ScrollUp(t.viewport.Height)
}

// PageDown scrolls down one page.
func (t *Transcript) PageDown() {
	t.viewport.ScrollDown(t.viewport.Height)
}

// Content returns the full rendered transcript.
func (t *Transcript) Content() string {
	if len(t.entries) == 0 {
		return t.styles.Muted.Render(Welcome)
	}

	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		blocks = append(blocks, t.renderEntry(e))
	}
	return strings.Join(blocks, "\n\n")
}

func (t *Transcript) refresh() {
	t.viewport.SetContent(t.Content())
	t.viewport.GotoBottom()
}

func (t *Transcript) renderEntry(e Entry) string {
	if e.Notice != "" {
		return t.styles.Notice.Render(e.Notice)
	}

	question := t.styles.Question.Render("❓ " + e.Question)
	switch e.Status {
	case domain.TurnAnswered:
		return question + "\n" + t.renderMarkdown(e.Answer)
	case domain.TurnEmpty:
		return question + "\n" + t.styles.Warning.Render(e.Answer)
	default:
		return question + "\n" + t.styles.Error.Render(e.Answer)
	}
}

func (t *Transcript) renderMarkdown(text string) string {
	if t.markdown == nil {
		return t.styles.Normal.Render(text)
	}
	out, err := t.markdown.Render(text)
	if err != nil {
		return t.styles.Normal.Render(text)
	}
	return strings.TrimRight(out, "\n")
}
