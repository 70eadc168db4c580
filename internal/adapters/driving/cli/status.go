package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection size and configuration",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}

	cmd.Println("docqa status")
	cmd.Println("============")
	cmd.Printf("  Embedding:    %s (%s)\n", settings.Embedding.Provider.Description(), settings.Embedding.Model)
	cmd.Printf("  LLM:          %s (%s)\n", settings.LLM.Provider.Description(), settings.LLM.Model)
	cmd.Printf("  Vector store: %s, collection %q, %d dims\n",
		settings.VectorStore.Backend.Description(), settings.VectorStore.Collection, settings.VectorStore.Dimensions)
	cmd.Printf("  Retrieval:    %s, k=%d\n", settings.Retrieval.SearchType, settings.Retrieval.K)

	s, err := getSession(cmd.Context())
	if err != nil {
		cmd.Printf("  Chunks:       unavailable (%v)\n", err)
		return nil
	}
	count, err := s.Index.Count(cmd.Context())
	if err != nil {
		cmd.Printf("  Chunks:       unavailable (%v)\n", err)
		return nil
	}
	cmd.Printf("  Chunks:       %d\n", count)
	return nil
}
