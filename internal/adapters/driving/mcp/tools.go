package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/mod/modfile"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Tool names.
const (
	ToolCalculate      = "calculate"
	ToolReadFile       = "read_file"
	ToolListFiles      = "list_files"
	ToolGetProjectInfo = "get_project_info"
	ToolAskDocuments   = "ask_documents"
)

// MaxReadBytes caps the size of files returned by read_file.
const MaxReadBytes = 1 << 20

const (
	deniedFile = "Error: Access denied. File outside project directory."
	deniedDir  = "Error: Access denied. Directory outside project directory."
)

// projectConfigFiles are reported by get_project_info when present.
var projectConfigFiles = []string{"config.toml", ".docqa.toml"}

// toolHandler runs one tool. Failures are reported in the result, not as Go errors,
// so the client always receives a readable message.
type toolHandler func(ctx context.Context, args json.RawMessage) *mcp.CallToolResult

// registry pairs the advertised manifest with the handlers that serve it.
type registry struct {
	manifest []*mcp.Tool
	handlers map[string]toolHandler
}

// buildRegistry returns the tool table for s.
func (s *Server) buildRegistry() *registry {
	r := &registry{
		manifest: []*mcp.Tool{
			{
				Name:        ToolCalculate,
				Description: "Perform basic mathematical calculations (add, subtract, multiply, divide)",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"operation": {
						Type:        "string",
						Enum:        []any{"add", "subtract", "multiply", "divide"},
						Description: "The mathematical operation to perform",
					},
					"a": {Type: "number", Description: "First number"},
					"b": {Type: "number", Description: "Second number"},
				}, "operation", "a", "b"),
			},
			{
				Name:        ToolReadFile,
				Description: "Read the contents of a text file from the project directory",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"filepath": {Type: "string", Description: "Path to the file relative to the project root"},
				}, "filepath"),
			},
			{
				Name:        ToolListFiles,
				Description: "List all files in a directory",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{
					"directory": {
						Type:        "string",
						Description: "Directory path relative to project root (default: current directory)",
						Default:     json.RawMessage(`"."`),
					},
				}),
			},
			{
				Name:        ToolGetProjectInfo,
				Description: "Get information about the current project (Go version, module, dependencies)",
				InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
			},
		},
		handlers: map[string]toolHandler{
			ToolCalculate:      s.calculate,
			ToolReadFile:       s.readFile,
			ToolListFiles:      s.listFiles,
			ToolGetProjectInfo: s.projectInfo,
		},
	}

	if s.ports.Query != nil {
		r.manifest = append(r.manifest, &mcp.Tool{
			Name:        ToolAskDocuments,
			Description: "Answer a question from the indexed documents, citing sources",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"question": {Type: "string", Description: "The question to answer"},
			}, "question"),
		})
		r.handlers[ToolAskDocuments] = s.askDocuments
	}

	return r
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	if required == nil {
		required = []string{}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

// validateRegistry checks that manifest and handlers describe the same tools.
func validateRegistry(r *registry) error {
	seen := make(map[string]bool, len(r.manifest))
	for _, tool := range r.manifest {
		if tool == nil || tool.Name == "" {
			return fmt.Errorf("%w: unnamed tool in manifest", domain.ErrToolRegistry)
		}
		if seen[tool.Name] {
			return fmt.Errorf("%w: duplicate tool %q", domain.ErrToolRegistry, tool.Name)
		}
		seen[tool.Name] = true
		if !hasSchema(tool.InputSchema) {
			return fmt.Errorf("%w: tool %q has no input schema", domain.ErrToolRegistry, tool.Name)
		}
		if r.handlers[tool.Name] == nil {
			return fmt.Errorf("%w: tool %q has no handler", domain.ErrToolRegistry, tool.Name)
		}
	}
	for name := range r.handlers {
		if !seen[name] {
			return fmt.Errorf("%w: handler %q is not in the manifest", domain.ErrToolRegistry, name)
		}
	}
	return nil
}

func hasSchema(v any) bool {
	switch schema := v.(type) {
	case nil:
		return false
	case *jsonschema.Schema:
		return schema != nil
	default:
		return true
	}
}

// Dispatch routes a tool call by name.
func (s *Server) Dispatch(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	handler, ok := s.registry.handlers[name]
	if !ok {
		return errorResult(fmt.Sprintf("Error: Unknown tool '%s'", name))
	}
	return handler(ctx, args)
}

// handle adapts Dispatch to the SDK's tool handler signature.
func (s *Server) handle(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		name string
		args json.RawMessage
	)
	if req != nil && req.Params != nil {
		name = req.Params.Name
		args = req.Params.Arguments
	}
	return s.Dispatch(ctx, name, args), nil
}

type calculateInput struct {
	Operation string   `json:"operation"`
	A         *float64 `json:"a"`
	B         *float64 `json:"b"`
}

var operationSymbols = map[string]string{
	"add":      "+",
	"subtract": "-",
	"multiply": "*",
	"divide":   "/",
}

func (s *Server) calculate(_ context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in calculateInput
	if err := decodeArgs(args, &in); err != nil {
		return invalidArgs(err)
	}
	switch {
	case in.Operation == "":
		return invalidArgs(errors.New("operation is required"))
	case in.A == nil || in.B == nil:
		return invalidArgs(errors.New("a and b are required"))
	}

	symbol, ok := operationSymbols[in.Operation]
	if !ok {
		return errorResult("Error: Unknown operation " + in.Operation)
	}

	a, b := *in.A, *in.B
	var result float64
	switch in.Operation {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return errorResult("Error: Division by zero")
		}
		result = a / b
	}

	return textResult(fmt.Sprintf("Result: %s %s %s = %s",
		formatNumber(a), symbol, formatNumber(b), formatNumber(result)))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type readFileInput struct {
	Filepath string `json:"filepath"`
}

func (s *Server) readFile(_ context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in readFileInput
	if err := decodeArgs(args, &in); err != nil {
		return invalidArgs(err)
	}
	if in.Filepath == "" {
		return invalidArgs(errors.New("filepath is required"))
	}

	path, err := resolveWithin(s.root, in.Filepath)
	if err != nil {
		return errorResult(deniedFile)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult("Error: File not found: " + in.Filepath)
	}
	if err != nil {
		return errorResult("Error reading file: " + s.scrub(err))
	}
	if info.IsDir() {
		return errorResult(fmt.Sprintf("Error reading file: %s is a directory", in.Filepath))
	}
	if info.Size() > MaxReadBytes {
		return errorResult(fmt.Sprintf("Error reading file: %s is larger than %d bytes", in.Filepath, MaxReadBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errorResult("Error reading file: " + s.scrub(err))
	}
	if !utf8.Valid(data) {
		return errorResult(fmt.Sprintf("Error reading file: %s is not valid UTF-8 text", in.Filepath))
	}

	return textResult(fmt.Sprintf("File contents of %s:\n\n%s", in.Filepath, data))
}

type listFilesInput struct {
	Directory string `json:"directory"`
}

func (s *Server) listFiles(_ context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in listFilesInput
	if err := decodeArgs(args, &in); err != nil {
		return invalidArgs(err)
	}
	if in.Directory == "" {
		in.Directory = "."
	}

	path, err := resolveWithin(s.root, in.Directory)
	if err != nil {
		return errorResult(deniedDir)
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult("Error: Directory not found: " + in.Directory)
	}
	if err != nil {
		return errorResult("Error listing files: " + s.scrub(err))
	}
	if !info.IsDir() {
		return errorResult("Error: Path is not a directory: " + in.Directory)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return errorResult("Error listing files: " + s.scrub(err))
	}

	// ReadDir sorts by name. Entries are stat-ed so symlinks report their target kind.
	var files, dirs []string
	for _, entry := range entries {
		target, err := os.Stat(filepath.Join(path, entry.Name()))
		if err != nil {
			continue
		}
		switch {
		case target.IsDir():
			dirs = append(dirs, "  - "+entry.Name()+"/")
		case target.Mode().IsRegular():
			files = append(files, "  - "+entry.Name())
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Files in %s:\n", in.Directory)
	if len(files) > 0 {
		b.WriteString("\nFiles:\n")
		b.WriteString(strings.Join(files, "\n"))
	}
	if len(dirs) > 0 {
		b.WriteString("\nDirectories:\n")
		b.WriteString(strings.Join(dirs, "\n"))
	}
	if len(files) == 0 && len(dirs) == 0 {
		b.WriteString("  (empty)")
	}

	return textResult(b.String())
}

func (s *Server) projectInfo(_ context.Context, args json.RawMessage) *mcp.CallToolResult {
	if err := decodeArgs(args, &struct{}{}); err != nil {
		return invalidArgs(err)
	}

	info := []string{"Go version: " + runtime.Version()}

	modPath := filepath.Join(s.root, "go.mod")
	data, err := os.ReadFile(modPath)
	switch {
	case err == nil:
		lines, err := describeModule(data)
		if err != nil {
			return errorResult("Error getting project info: " + s.scrub(err))
		}
		info = append(info, lines...)
	case !errors.Is(err, fs.ErrNotExist):
		return errorResult("Error getting project info: " + s.scrub(err))
	}

	for _, name := range projectConfigFiles {
		if _, err := os.Stat(filepath.Join(s.root, name)); err == nil {
			info = append(info, "\nProject configuration found: "+name)
		}
	}

	return textResult(strings.Join(info, "\n"))
}

// describeModule summarises a go.mod file.
func describeModule(data []byte) ([]string, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing go.mod: %w", err)
	}

	var lines []string
	if f.Module != nil {
		lines = append(lines, "", "Module: "+f.Module.Mod.Path)
	}
	if f.Go != nil {
		lines = append(lines, "Go directive: "+f.Go.Version)
	}
	if len(f.Require) > 0 {
		lines = append(lines, "\nDependencies (from go.mod):")
		for _, req := range f.Require {
			line := fmt.Sprintf("  - %s %s", req.Mod.Path, req.Mod.Version)
			if req.Indirect {
				line += " (indirect)"
			}
			lines = append(lines, line)
		}
	}
	return lines, nil
}

type askInput struct {
	Question string `json:"question"`
}

func (s *Server) askDocuments(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in askInput
	if err := decodeArgs(args, &in); err != nil {
		return invalidArgs(err)
	}
	if strings.TrimSpace(in.Question) == "" {
		return invalidArgs(errors.New("question is required"))
	}

	result := s.ports.Query.Ask(ctx, in.Question)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Formatted}},
		IsError: result.Status == domain.QueryFailed,
	}
}

// decodeArgs unmarshals tool arguments. Absent arguments decode as an empty object.
func decodeArgs(args json.RawMessage, v any) error {
	trimmed := strings.TrimSpace(string(args))
	if trimmed == "" || trimmed == "null" {
		trimmed = "{}"
	}
	return json.Unmarshal([]byte(trimmed), v)
}

// scrub replaces the absolute root in err with "." so replies never expose it.
func (s *Server) scrub(err error) string {
	msg := err.Error()
	msg = strings.ReplaceAll(msg, s.root+string(filepath.Separator), "."+string(filepath.Separator))
	return strings.ReplaceAll(msg, s.root, ".")
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

func invalidArgs(err error) *mcp.CallToolResult {
	return errorResult("Error: invalid arguments: " + err.Error())
}
