package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptRAGSystem instructs the model to answer from the supplied documents.
	// This prompt has no format placeholders.
	PromptRAGSystem = "rag_system"

	// PromptRAGQuestion carries the context block and the question.
	// The template expects %s (context) followed by %s (question).
	PromptRAGQuestion = "rag_question"
)
