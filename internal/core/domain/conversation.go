package domain

import "time"

// TurnStatus tags the outcome of a conversation turn.
type TurnStatus string

// Available turn statuses.
const (
	// TurnAnswered means the model produced an answer with sources.
	TurnAnswered TurnStatus = "answered"

	// TurnEmpty means no relevant chunks were found.
	TurnEmpty TurnStatus = "empty"

	// TurnFailed means retrieval or the model call failed.
	TurnFailed TurnStatus = "failed"
)

// ConversationTurn is one question and the answer shown for it.
type ConversationTurn struct {
	// Question is the user's question.
	Question string

	// Answer is the user-facing text: the answer with its sources section,
	// or the empty/error message.
	Answer string

	// Status records the outcome so failures can be told apart from answers.
	Status TurnStatus

	// Sources summarises the documents cited in the answer.
	Sources []SourceSummary

	// At is when the turn was recorded.
	At time.Time
}

// SourceSummary describes one source's contribution to an answer.
type SourceSummary struct {
	// Source is the file name.
	Source string

	// ChunkCount is the number of retrieved chunks from this source.
	ChunkCount int

	// Previews holds up to three chunk previews.
	Previews []string
}
