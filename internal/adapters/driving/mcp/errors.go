// Package mcp provides the docqa-tools Model Context Protocol server.
// It exposes project utilities (arithmetic, file reading, directory listing,
// project info) and, when wired to the pipeline, document Q&A to MCP clients.
package mcp

import "errors"

// ErrMissingRoot is returned when no project root is configured.
var ErrMissingRoot = errors.New("mcp: project root is required")
