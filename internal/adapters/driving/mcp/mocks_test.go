package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result   *domain.QueryResult
	question string
}

func (m *mockQueryService) Ask(_ context.Context, question string) *domain.QueryResult {
	m.question = question
	return m.result
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	turns []domain.ConversationTurn
}

func (m *mockHistoryService) History() []domain.ConversationTurn {
	return append([]domain.ConversationTurn(nil), m.turns...)
}

func (m *mockHistoryService) ResetHistory() {
	m.turns = nil
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	count int
	err   error
}

func (m *mockIndexService) Index(_ context.Context, _ []string) (*domain.IndexReport, error) {
	return &domain.IndexReport{}, m.err
}

func (m *mockIndexService) Clear(_ context.Context) (string, error) {
	return domain.StatusCleared, m.err
}

func (m *mockIndexService) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

// writeTree creates files under root. Keys ending in "/" create directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

// newTestServer builds a server rooted at a fresh temp directory.
func newTestServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	s, err := NewServer(&Ports{Root: root})
	require.NoError(t, err)
	return s
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}
