package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Name is the server name advertised to clients.
const Name = "docqa-tools"

// Version is the MCP server version.
const Version = "0.1.0"

// Server is the docqa-tools MCP server.
type Server struct {
	ports    *Ports
	root     string
	registry *registry
	server   *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingRoot
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	root, err := ports.resolvedRoot()
	if err != nil {
		return nil, err
	}

	s := &Server{
		ports: ports,
		root:  root,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    Name,
			Version: Version,
		}, nil),
	}

	s.registry = s.buildRegistry()
	if err := validateRegistry(s.registry); err != nil {
		return nil, err
	}

	for _, tool := range s.registry.manifest {
		s.server.AddTool(tool, s.handle)
	}
	s.registerResources()

	return s, nil
}

// Root returns the resolved project root.
func (s *Server) Root() string {
	return s.root
}

// Tools returns the advertised tool names in manifest order.
func (s *Server) Tools() []string {
	names := make([]string, len(s.registry.manifest))
	for i, tool := range s.registry.manifest {
		names[i] = tool.Name
	}
	return names
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
