package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watcher"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	watchInclude  []string
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Index documents as they change",
	Long: `Watch a directory tree and index new or changed documents.

Changes are collected until the tree has been quiet for the debounce
interval, then indexed as one batch. Hidden files and directories are
ignored. Press Ctrl+C to stop.

Examples:
  docqa watch ~/notes
  docqa watch docs --include '*.md' --include 'specs/**/*.pdf'
  docqa watch docs --initial`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchInclude, "include", nil, "only index files matching these globs")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before indexing")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "index existing files before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := getSession(cmd.Context())
	if err != nil {
		return err
	}

	w, err := watcher.New(s.Index, watcher.Options{
		Root:     args[0],
		Include:  watchInclude,
		Supports: s.Supports,
		Debounce: watchDebounce,
		Initial:  watchInitial,
		OnReport: func(report *domain.IndexReport, err error) {
			if report == nil && err != nil {
				cmd.Printf("❌ Error indexing documents: %v\n", err)
			}
		},
	})
	if err != nil {
		return err
	}

	return w.Run(cmd.Context())
}
