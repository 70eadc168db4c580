package mcp

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates everything the MCP server needs.
// Only Root is required; the document ports enable the Q&A tool and resources.
type Ports struct {
	// Root is the project directory file tools are confined to.
	Root string

	// Query answers questions from indexed documents.
	Query driving.QueryService

	// History exposes the conversation transcript.
	History driving.HistoryService

	// Index reports collection size.
	Index driving.IndexService
}

// Validate ensures the root is set and is an existing directory.
func (p *Ports) Validate() error {
	if p.Root == "" {
		return ErrMissingRoot
	}
	info, err := os.Stat(p.Root)
	if err != nil {
		return fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("project root %s is not a directory", p.Root)
	}
	return nil
}

// resolvedRoot returns the absolute root with symlinks evaluated.
func (p *Ports) resolvedRoot() (string, error) {
	abs, err := filepath.Abs(p.Root)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("project root: %w", err)
	}
	return resolved, nil
}
