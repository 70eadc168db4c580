package cli

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all indexed documents",
	Long:  `Delete the vector collection and recreate it empty.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	s, err := getSession(cmd.Context())
	if err != nil {
		return err
	}

	status, err := s.Index.Clear(cmd.Context())
	cmd.Println(status)
	return err
}
