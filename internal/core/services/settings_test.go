package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/memory"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func envMap(vars map[string]string) SettingsOption {
	return WithEnvLookup(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

func noEnv() SettingsOption {
	return envMap(nil)
}

type mockValidator struct {
	embedErr error
	llmErr   error
	embedded *domain.EmbeddingSettings
	llm      *domain.LLMSettings
}

func (m *mockValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedded = cfg
	return m.embedErr
}

func (m *mockValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.LLM.Model, settings.LLM.Model)
	assert.Zero(t, settings.LLM.Temperature)
	assert.Equal(t, domain.VectorBackendSQLite, settings.VectorStore.Backend)
	assert.Equal(t, "docqa_documents", settings.VectorStore.Collection)
	assert.Equal(t, 1536, settings.VectorStore.Dimensions)
	assert.Equal(t, domain.StrategyMMR, settings.Retrieval.SearchType)
	assert.Equal(t, 10, settings.Retrieval.K)
	assert.Equal(t, 20, settings.Retrieval.FetchK)
	assert.InDelta(t, 0.5, settings.Retrieval.Lambda, 1e-9)
	assert.Equal(t, 6000, settings.Context.Budget)
	assert.Equal(t, domain.TruncateDropChunks, settings.Context.Truncation)
	assert.Equal(t, 1000, settings.Pipeline.GetProcessorConfig("chunker")["chunk_size"])
	assert.Equal(t, 200, settings.Pipeline.GetProcessorConfig("chunker")["overlap"])
	assert.Empty(t, settings.Embedding.APIKey)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":      "ollama",
		"embedding.model":         "nomic-embed-text",
		"llm.provider":            "anthropic",
		"llm.temperature":         0.2,
		"vector_store.backend":    "qdrant",
		"vector_store.url":        "http://qdrant:6333",
		"retrieval.k":             int64(4),
		"retrieval.search_type":   "similarity",
		"context.truncation":      "cut",
		"chunking.chunk_size":     int64(500),
		"chunking.overlap":        int64(50),
		"chunking.separators":     []any{"\n\n", "\n"},
		"limits.breaker_failures": int64(0),
	})
	service := NewSettingsService(store, nil, noEnv())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, 768, settings.VectorStore.Dimensions, "dimension follows the embedding model")
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.InDelta(t, 0.2, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, domain.VectorBackendQdrant, settings.VectorStore.Backend)
	assert.Equal(t, "http://qdrant:6333", settings.VectorStore.URL)
	assert.Equal(t, 4, settings.Retrieval.K)
	assert.Equal(t, domain.StrategySimilarity, settings.Retrieval.SearchType)
	assert.Equal(t, domain.TruncateCut, settings.Context.Truncation)
	chunker := settings.Pipeline.GetProcessorConfig("chunker")
	assert.Equal(t, 500, chunker["chunk_size"])
	assert.Equal(t, 50, chunker["overlap"])
	assert.Equal(t, []string{"\n\n", "\n"}, chunker["separators"])
	assert.Zero(t, settings.Limits.BreakerFailures, "an explicit zero disables the breaker")
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":    "invalid_provider",
		"vector_store.backend":  "cassandra",
		"retrieval.search_type": "random",
		"context.truncation":    "squash",
	})
	service := NewSettingsService(store, nil, noEnv())

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Retrieval.SearchType, settings.Retrieval.SearchType)
	assert.Equal(t, defaults.Context.Truncation, settings.Context.Truncation)
}

func TestSettingsService_Get_Environment(t *testing.T) {
	t.Run("provider keys fill missing api keys", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"llm.provider": "anthropic"})
		service := NewSettingsService(store, nil, envMap(map[string]string{
			"OPENAI_API_KEY":    "sk-openai",
			"ANTHROPIC_API_KEY": "sk-ant",
		}))

		settings, err := service.Get()

		require.NoError(t, err)
		assert.Equal(t, "sk-openai", settings.Embedding.APIKey)
		assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	})

	t.Run("config wins over environment", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.api_key": "from-config"})
		service := NewSettingsService(store, nil, envMap(map[string]string{"OPENAI_API_KEY": "from-env"}))

		settings, err := service.Get()

		require.NoError(t, err)
		assert.Equal(t, "from-config", settings.Embedding.APIKey)
	})

	t.Run("prefixed variables fill any key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, envMap(map[string]string{
			"DOCQA_VECTOR_STORE_BACKEND": "sqlite",
			"DOCQA_RETRIEVAL_K":          "3",
			"DOCQA_RETRIEVAL_LAMBDA":     "0.8",
			"DOCQA_LLM_API_KEY":          "sk-docqa",
			"DOCQA_CONTEXT_BUDGET":       "not-a-number",
		}))

		settings, err := service.Get()

		require.NoError(t, err)
		assert.Equal(t, domain.VectorBackendSQLite, settings.VectorStore.Backend)
		assert.Equal(t, 3, settings.Retrieval.K)
		assert.InDelta(t, 0.8, settings.Retrieval.Lambda, 1e-9)
		assert.Equal(t, "sk-docqa", settings.LLM.APIKey)
		assert.Equal(t, 6000, settings.Context.Budget, "unparsable values fall back to defaults")
	})
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "DOCQA_VECTOR_STORE_URL", EnvName("vector_store.url"))
	assert.Equal(t, "DOCQA_LLM_API_KEY", EnvName("llm.api_key"))
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, noEnv())

	settings := domain.DefaultAppSettings()
	settings.Embedding.APIKey = "sk-test-key"
	settings.LLM.Provider = domain.AIProviderAnthropic
	settings.LLM.Model = "claude-3-5-sonnet-latest"
	settings.LLM.APIKey = "sk-ant-test"
	settings.VectorStore.Backend = domain.VectorBackendRedis
	settings.VectorStore.APIKey = "redis-pass"
	settings.Retrieval.K = 5
	settings.Context.Truncation = domain.TruncateCut
	settings.Pipeline.ProcessorConfigs["chunker"]["chunk_size"] = 800

	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", retrieved.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderAnthropic, retrieved.LLM.Provider)
	assert.Equal(t, "sk-ant-test", retrieved.LLM.APIKey)
	assert.Equal(t, domain.VectorBackendRedis, retrieved.VectorStore.Backend)
	assert.Equal(t, "redis-pass", retrieved.VectorStore.APIKey)
	assert.Equal(t, 5, retrieved.Retrieval.K)
	assert.Equal(t, domain.TruncateCut, retrieved.Context.Truncation)
	assert.Equal(t, 800, retrieved.Pipeline.GetProcessorConfig("chunker")["chunk_size"])
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKeys(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, envMap(map[string]string{"OPENAI_API_KEY": "sk-env"}))

	settings, err := service.Get()
	require.NoError(t, err)
	require.NoError(t, service.Save(settings))

	_, exists := store.Get("embedding.api_key")
	assert.False(t, exists)
}

func TestSettingsService_Save_Nil(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.ErrorIs(t, service.Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama gets local url and model dimensions", func(t *testing.T) {
		store := memory.NewConfigStore()
		service := NewSettingsService(store, nil, noEnv())

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
		assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
		assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
		assert.Equal(t, 768, settings.VectorStore.Dimensions)
	})

	t.Run("openai requires a key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

		err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")

		assert.ErrorContains(t, err, "API key required")
	})

	t.Run("openai key from environment", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, envMap(map[string]string{"OPENAI_API_KEY": "sk-env"}))

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, 3072, settings.VectorStore.Dimensions)
		assert.Empty(t, settings.Embedding.BaseURL)
	})

	t.Run("anthropic has no embeddings", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

		err := service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "key")

		assert.ErrorContains(t, err, "does not support embeddings")
	})

	t.Run("invalid provider", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

		assert.Error(t, service.SetEmbeddingProvider("bogus", "", ""))
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil, noEnv())

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)

	assert.ErrorContains(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""), "API key required")
	assert.Error(t, service.SetLLMProvider("bogus", "", ""))
}

func TestSettingsService_SetVectorBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend domain.VectorBackend
		url     string
		wantURL string
	}{
		{"memory clears url", domain.VectorBackendMemory, "http://ignored", ""},
		{"qdrant default url", domain.VectorBackendQdrant, "", "http://localhost:6333"},
		{"redis explicit url", domain.VectorBackendRedis, "cache:6380", "cache:6380"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

			require.NoError(t, service.SetVectorBackend(tt.backend, tt.url))

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.backend, settings.VectorStore.Backend)
			assert.Equal(t, tt.wantURL, settings.VectorStore.URL)
		})
	}

	t.Run("invalid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())
		assert.Error(t, service.SetVectorBackend("cassandra", ""))
	})
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, noEnv())

		assert.ErrorIs(t, service.Validate(), domain.ErrEmbeddingUnavailable)
	})

	t.Run("configured", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil, envMap(map[string]string{"OPENAI_API_KEY": "sk"}))

		assert.NoError(t, service.Validate())
	})
}

func TestValidateSettings(t *testing.T) {
	valid := func() *domain.AppSettings {
		s := domain.DefaultAppSettings()
		s.Embedding.APIKey = "sk"
		s.LLM.APIKey = "sk"
		return &s
	}
	require.NoError(t, ValidateSettings(valid()))

	tests := []struct {
		name   string
		mutate func(*domain.AppSettings)
		want   error
	}{
		{"anthropic embeddings", func(s *domain.AppSettings) { s.Embedding.Provider = domain.AIProviderAnthropic }, domain.ErrInvalidInput},
		{"llm key", func(s *domain.AppSettings) { s.LLM.APIKey = "" }, domain.ErrLLMUnavailable},
		{"dimensions", func(s *domain.AppSettings) { s.VectorStore.Dimensions = 0 }, domain.ErrInvalidInput},
		{"k", func(s *domain.AppSettings) { s.Retrieval.K = 0 }, domain.ErrInvalidInput},
		{"fetch_k below k", func(s *domain.AppSettings) { s.Retrieval.FetchK = 5 }, domain.ErrInvalidInput},
		{"lambda", func(s *domain.AppSettings) { s.Retrieval.Lambda = 1.5 }, domain.ErrInvalidInput},
		{"budget", func(s *domain.AppSettings) { s.Context.Budget = -1 }, domain.ErrInvalidInput},
		{"truncation", func(s *domain.AppSettings) { s.Context.Truncation = "squash" }, domain.ErrInvalidInput},
		{"overlap", func(s *domain.AppSettings) { s.Pipeline.ProcessorConfigs["chunker"]["overlap"] = 1000 }, domain.ErrInvalidInput},
		{"limits", func(s *domain.AppSettings) { s.Limits.EmbedRPS = -1 }, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			assert.ErrorIs(t, ValidateSettings(s), tt.want)
		})
	}
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	assert.Equal(t, domain.DefaultAppSettings().Retrieval, service.GetDefaults().Retrieval)
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates", func(t *testing.T) {
		validator := &mockValidator{llmErr: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), validator, noEnv())

		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.EqualError(t, service.ValidateLLMConfig(), "unreachable")
		require.NotNil(t, validator.embedded)
		assert.Equal(t, domain.AIProviderOpenAI, validator.embedded.Provider)
		require.NotNil(t, validator.llm)
	})
}
