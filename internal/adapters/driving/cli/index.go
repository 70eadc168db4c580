package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/fileset"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// msgEphemeralStore warns that a one-shot index is lost when the process exits.
const msgEphemeralStore = "⚠️ The memory vector store lasts only for this process. " +
	"Use 'docqa chat' or 'docqa ask' with no arguments, or run 'docqa settings store' to pick a persistent backend."

var indexCmd = &cobra.Command{
	Use:   "index <files|dirs|globs...>",
	Short: "Index documents for question answering",
	Long: `Load, chunk and embed documents into the vector store.

Arguments may be files, directories (indexed recursively) or doublestar
globs such as 'docs/**/*.pdf'. Files that cannot be loaded are reported
and skipped; the rest of the batch is still indexed.

Supported: .pdf .docx .pptx .xlsx .html .htm .md .markdown .txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	s, err := getSession(cmd.Context())
	if err != nil {
		return err
	}

	paths, err := fileset.Expand(args, s.Supports)
	if err != nil {
		return err
	}

	report, err := s.Index.Index(cmd.Context(), paths)
	if report != nil {
		cmd.Println(report.Status())
	}
	if err == nil && !persistentStore() {
		cmd.PrintErrln(msgEphemeralStore)
	}
	return err
}

// persistentStore reports whether the configured backend outlives the process.
func persistentStore() bool {
	if settingsService == nil {
		return true
	}
	settings, err := settingsService.Get()
	if err != nil {
		return true
	}
	return settings.VectorStore.Backend != domain.VectorBackendMemory
}
