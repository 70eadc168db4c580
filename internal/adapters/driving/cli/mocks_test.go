package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	indexed  [][]string
	report   *domain.IndexReport
	indexErr error
	count    int
	countErr error
	clearErr error
}

func (m *mockIndexService) Index(_ context.Context, paths []string) (*domain.IndexReport, error) {
	m.indexed = append(m.indexed, paths)
	if m.report != nil || m.indexErr != nil {
		return m.report, m.indexErr
	}
	return &domain.IndexReport{Processed: paths, ChunkCount: 2 * len(paths)}, nil
}

func (m *mockIndexService) Clear(_ context.Context) (string, error) {
	if m.clearErr != nil {
		return domain.StatusClearFailed + m.clearErr.Error(), m.clearErr
	}
	return domain.StatusCleared, nil
}

func (m *mockIndexService) Count(_ context.Context) (int, error) {
	return m.count, m.countErr
}

// mockQueryService implements driving.QueryService and driving.HistoryService.
type mockQueryService struct {
	asked []string
	turns []domain.ConversationTurn
}

func (m *mockQueryService) Ask(_ context.Context, question string) *domain.QueryResult {
	m.asked = append(m.asked, question)
	m.turns = append(m.turns, domain.ConversationTurn{Question: question, Status: domain.TurnAnswered})
	return &domain.QueryResult{Status: domain.QuerySuccess, Question: question, Formatted: "answer: " + question}
}

func (m *mockQueryService) History() []domain.ConversationTurn {
	return append([]domain.ConversationTurn(nil), m.turns...)
}

func (m *mockQueryService) ResetHistory() {
	m.turns = nil
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	backend     domain.VectorBackend
	backendURL  string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend, url string) error {
	m.backend = backend
	m.backendURL = url
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return nil
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return nil
}

type testSession struct {
	index  *mockIndexService
	query  *mockQueryService
	closed int
}

// setupTestServices installs mock services and restores the globals after the test.
func setupTestServices(t *testing.T, settings *mockSettingsService) *testSession {
	t.Helper()
	ts := &testSession{index: &mockIndexService{}, query: &mockQueryService{}}

	if settings != nil {
		settingsService = settings
	}
	openSession = func(context.Context) (*Session, error) {
		return &Session{
			Index:    ts.index,
			Query:    ts.query,
			History:  ts.query,
			Supports: func(path string) bool { return strings.HasSuffix(path, ".md") },
			Close: func() error {
				ts.closed++
				return nil
			},
		}, nil
	}

	t.Cleanup(func() {
		settingsService = nil
		openSession = nil
		session = nil
	})
	return ts
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}
