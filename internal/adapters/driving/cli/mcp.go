package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	mcpRoot string
	mcpPort int
	mcpDocs bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long: `Commands for the Model Context Protocol (MCP) server integration.

Running 'docqa mcp' without a subcommand starts the server.`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the docqa-tools Model Context Protocol server.

Tools:
  calculate         - add, subtract, multiply or divide two numbers
  read_file         - read a text file inside the project root
  list_files        - list a directory inside the project root
  get_project_info  - Go version, module and dependencies
  ask_documents     - answer from the indexed documents (when configured)

File tools are confined to --root (default: the current directory).

By default, the server communicates over stdio using JSON-RPC. Use --port
to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants and editors)
  docqa mcp serve --root ~/src/project

  # HTTP mode (for MCP Inspector, remote access)
  docqa mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "docqa-tools": {
        "command": "/path/to/docqa",
        "args": ["mcp", "serve", "--root", "/path/to/project"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.PersistentFlags().StringVar(&mcpRoot, "root", "", "project root for file tools (default: current directory)")
	mcpCmd.PersistentFlags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.PersistentFlags().BoolVar(&mcpDocs, "docs", true, "expose ask_documents and history resources")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	root := mcpRoot
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}

	ports := &mcp.Ports{Root: root}
	if mcpDocs {
		s, err := getSession(cmd.Context())
		if err != nil {
			logger.Warn("document tools disabled: %v", err)
		} else {
			ports.Query = s.Query
			ports.History = s.History
			ports.Index = s.Index
		}
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
