// Package messages defines Bubbletea message types for the chat TUI.
// Long-running work runs in tea.Cmd functions and reports back with these.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QueryCompleted carries the outcome of a question back to the model.
type QueryCompleted struct {
	Result *domain.QueryResult
}

// IndexCompleted carries the outcome of an :index command.
type IndexCompleted struct {
	Report *domain.IndexReport
	Err    error
}

// CountLoaded carries the number of stored chunks.
type CountLoaded struct {
	Count int
	Err   error
}

// Notice is a line shown in the transcript that is not part of the history,
// such as an indexing report or a usage hint.
type Notice struct {
	Text string
}
