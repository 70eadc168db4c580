package domain

import (
	"fmt"
	"strings"
)

// QueryStatus distinguishes success, empty results and failures.
type QueryStatus string

// Available query statuses.
const (
	QuerySuccess QueryStatus = "success"
	QueryEmpty   QueryStatus = "empty"
	QueryFailed  QueryStatus = "failed"
)

// TurnStatus maps a query status onto the history tag.
func (s QueryStatus) TurnStatus() TurnStatus {
	switch s {
	case QuerySuccess:
		return TurnAnswered
	case QueryEmpty:
		return TurnEmpty
	default:
		return TurnFailed
	}
}

// QueryResult is the outcome of one question.
type QueryResult struct {
	// Status is the outcome.
	Status QueryStatus

	// Question echoes the question asked.
	Question string

	// Answer is the raw model text. Empty unless Status is QuerySuccess.
	Answer string

	// Formatted is the user-facing text: answer plus sources, or a message.
	Formatted string

	// Sources summarises the retrieved sources.
	Sources []SourceSummary

	// Retrieved is the set the answer was built from.
	Retrieved *RetrievedSet

	// Context is the assembled context sent to the model.
	Context *AssembledContext

	// Err is the underlying failure when Status is QueryFailed.
	Err error
}

// Succeeded returns true for a successful answer.
func (r *QueryResult) Succeeded() bool {
	return r != nil && r.Status == QuerySuccess
}

// FileFailure records a document that could not be loaded.
type FileFailure struct {
	// File is the file name.
	File string

	// Err is the load error.
	Err error
}

// String renders the failure as "name: error".
func (f FileFailure) String() string {
	return fmt.Sprintf("%s: %v", f.File, f.Err)
}

// User-facing status strings shared by the surfaces.
const (
	StatusNoFiles     = "⚠️ Please upload at least one document!"
	StatusCleared     = "✅ Index cleared successfully!"
	StatusClearFailed = "❌ Error clearing index: "
	StatusQueryFailed = "❌ Error processing query: "
	StatusNoRelevant  = "⚠️ No relevant documents found. Please index some documents first."
)

// IndexReport summarises one indexing batch.
type IndexReport struct {
	// Processed lists file names that loaded successfully.
	Processed []string

	// Failures lists files that could not be loaded.
	Failures []FileFailure

	// ChunkCount is the number of chunks upserted.
	ChunkCount int

	// Err is set when embedding or upserting failed.
	Err error
}

// Status renders the report as a user-facing status string.
func (r *IndexReport) Status() string {
	if r.Err != nil {
		return "❌ Error indexing documents: " + r.Err.Error()
	}

	if len(r.Processed) == 0 && len(r.Failures) == 0 {
		return StatusNoFiles
	}

	if len(r.Processed) == 0 {
		var b strings.Builder
		b.WriteString("⚠️ No documents could be loaded!\n")
		if len(r.Failures) > 0 {
			b.WriteString("\nErrors:\n")
			b.WriteString(bulletList(r.Failures))
		}
		return b.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Successfully indexed %d chunks from %d file(s)!\n\n", r.ChunkCount, len(r.Processed))
	b.WriteString("Files processed:\n")
	for i, name := range r.Processed {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + name)
	}
	if len(r.Failures) > 0 {
		b.WriteString("\n\n⚠️ Errors:\n")
		b.WriteString(bulletList(r.Failures))
	}
	return b.String()
}

func bulletList(failures []FileFailure) string {
	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = "- " + f.String()
	}
	return strings.Join(lines, "\n")
}
