package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryService answers questions from indexed documents.
type QueryService interface {
	// Ask retrieves, assembles and synthesizes an answer.
	// Failures are reported through the result status, never as a Go error,
	// so every outcome can be shown to the user and recorded in history.
	Ask(ctx context.Context, question string) *domain.QueryResult
}

// HistoryService exposes the conversation transcript.
type HistoryService interface {
	// History returns a copy of the recorded turns, oldest first.
	History() []domain.ConversationTurn

	// ResetHistory removes all turns.
	ResetHistory()
}
