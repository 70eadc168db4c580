// Package cli provides the docqa command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Options carries the root flags to the bootstrap function.
type Options struct {
	// ConfigDir overrides the settings directory (default ~/.docqa).
	ConfigDir string

	// Verbose enables pipeline tracing.
	Verbose bool
}

// Session is an open document pipeline.
type Session struct {
	Index    driving.IndexService
	Query    driving.QueryService
	History  driving.HistoryService
	Supports func(path string) bool
	Close    func() error
}

// Services are built once per process by the bootstrap function.
type Services struct {
	// Settings is always available, even when the pipeline cannot be built.
	Settings driving.SettingsService

	// OpenSession builds the document pipeline. It is called on first use.
	OpenSession func(ctx context.Context) (*Session, error)
}

// Bootstrap builds Services from the root flags.
type Bootstrap func(opts Options) (*Services, error)

var (
	bootstrap       Bootstrap
	settingsService driving.SettingsService
	openSession     func(ctx context.Context) (*Session, error)
	session         *Session
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa indexes local documents (PDF, Word, PowerPoint, Excel, HTML,
Markdown, text) into a vector store and answers questions about them with
a language model, citing the documents it used.

It also serves project utilities to MCP clients with 'docqa mcp serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "trace the indexing and question pipeline")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "settings directory (default ~/.docqa)")
}

// SetVersion sets the version reported by 'docqa version'.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that wires settings and the pipeline.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// Execute runs the root command and closes any open session.
// Interrupt and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer closeSession()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

// setup loads .env files and settings before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	loadEnv(configDir)

	if bootstrap == nil || settingsService != nil {
		return nil
	}
	svcs, err := bootstrap(Options{ConfigDir: configDir, Verbose: verbose})
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	settingsService = svcs.Settings
	openSession = svcs.OpenSession
	return nil
}

// loadEnv reads .env from the working directory, then from the config
// directory. Variables already set are never overwritten.
func loadEnv(dir string) {
	files := []string{".env"}
	if dir != "" {
		files = append(files, filepath.Join(dir, ".env"))
	} else if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".docqa", ".env"))
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			logger.Warn("reading %s: %v", f, err)
		}
	}
}

// getSession opens the document pipeline on first use.
func getSession(ctx context.Context) (*Session, error) {
	if session != nil {
		return session, nil
	}
	if openSession == nil {
		return nil, errors.New("document pipeline not configured")
	}
	s, err := openSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w\nRun 'docqa settings wizard' to fix configuration issues", err)
	}
	session = s
	return session, nil
}

func closeSession() {
	if session == nil || session.Close == nil {
		session = nil
		return
	}
	if err := session.Close(); err != nil {
		logger.Warn("closing pipeline: %v", err)
	}
	session = nil
}
