// Package tui provides an interactive chat interface for docqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the chat TUI.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// History exposes and resets the transcript.
	History driving.HistoryService

	// Index loads documents named by :index commands and counts chunks.
	Index driving.IndexService

	// Supports filters directory and glob expansion. Nil accepts every file.
	Supports func(path string) bool
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.History == nil {
		return ErrMissingHistoryService
	}
	if p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}
