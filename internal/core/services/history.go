package services

import (
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// History is the in-process conversation transcript.
type History struct {
	mu    sync.Mutex
	turns []domain.ConversationTurn
}

// NewHistory creates an empty transcript.
func NewHistory() *History {
	return &History{}
}

// Append records a turn.
func (h *History) Append(turn domain.ConversationTurn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// Turns returns a copy of the recorded turns, oldest first.
func (h *History) Turns() []domain.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Reset removes all turns.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
