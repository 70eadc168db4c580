package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyLLMTemperature   = "llm.temperature"
	keyVectorBackend    = "vector_store.backend"
	keyVectorCollection = "vector_store.collection"
	keyVectorDims       = "vector_store.dimensions"
	keyVectorURL        = "vector_store.url"
	keyVectorAPIKey     = "vector_store.api_key"
	keyVectorPath       = "vector_store.path"
	keyRetrievalK       = "retrieval.k"
	keyRetrievalFetchK  = "retrieval.fetch_k"
	keyRetrievalLambda  = "retrieval.lambda"
	keyRetrievalType    = "retrieval.search_type"
	keyContextBudget    = "context.budget"
	keyContextTruncate  = "context.truncation"
	keyChunkSize        = "chunking.chunk_size"
	keyChunkOverlap     = "chunking.overlap"
	keyChunkSeparators  = "chunking.separators"
	keyLimitEmbedRPS    = "limits.embed_rps"
	keyLimitBreaker     = "limits.breaker_failures"
)

// EnvPrefix prefixes environment variables that fill missing config keys.
// "llm.model" is read from DOCQA_LLM_MODEL.
const EnvPrefix = "DOCQA_"

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
// Values come from the config store first, then the environment, then defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnvLookup replaces os.LookupEnv, mainly for tests.
func WithEnvLookup(lookup func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		if lookup != nil {
			s.lookupEnv = lookup
		}
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(
	configStore driven.ConfigStore,
	aiValidator driven.AIConfigValidator,
	opts ...SettingsOption,
) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, defaults.LLM.Provider)

	embedModel := s.getString(keyEmbedModel, "")
	if embedModel == "" {
		embedModel = domain.DefaultEmbeddingModels()[embedProvider]
	}
	llmModel := s.getString(keyLLMModel, "")
	if llmModel == "" {
		llmModel = domain.DefaultLLMModels()[llmProvider]
	}

	dims := defaults.VectorStore.Dimensions
	if d, ok := domain.EmbeddingDimensions()[embedModel]; ok {
		dims = d
	}

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: embedProvider,
			Model:    embedModel,
			BaseURL:  s.getString(keyEmbedBaseURL, ""), // No default - empty is valid for cloud providers
			APIKey:   s.getAPIKey(keyEmbedAPIKey, embedProvider),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       llmModel,
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			APIKey:      s.getAPIKey(keyLLMAPIKey, llmProvider),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:    s.getBackend(defaults.VectorStore.Backend),
			Collection: s.getString(keyVectorCollection, defaults.VectorStore.Collection),
			Dimensions: s.getInt(keyVectorDims, dims),
			URL:        s.getString(keyVectorURL, ""),
			APIKey:     s.getString(keyVectorAPIKey, ""),
			Path:       s.getString(keyVectorPath, ""),
		},
		Retrieval: domain.RetrievalSettings{
			SearchType: s.getStrategy(defaults.Retrieval.SearchType),
			K:          s.getInt(keyRetrievalK, defaults.Retrieval.K),
			FetchK:     s.getInt(keyRetrievalFetchK, defaults.Retrieval.FetchK),
			Lambda:     s.getFloat(keyRetrievalLambda, defaults.Retrieval.Lambda),
		},
		Context: domain.ContextSettings{
			Budget:     s.getInt(keyContextBudget, defaults.Context.Budget),
			Truncation: s.getTruncation(defaults.Context.Truncation),
		},
		Pipeline: s.GetPipelineConfig(),
		Limits: domain.LimitSettings{
			EmbedRPS:        s.getFloat(keyLimitEmbedRPS, defaults.Limits.EmbedRPS),
			BreakerFailures: s.getInt(keyLimitBreaker, defaults.Limits.BreakerFailures),
		},
	}

	return settings, nil
}

// Save persists application settings.
// API keys are written only when set and not already supplied by the environment.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrInvalidInput)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyVectorBackend, settings.VectorStore.Backend.String()},
		{keyVectorCollection, settings.VectorStore.Collection},
		{keyVectorDims, settings.VectorStore.Dimensions},
		{keyVectorURL, settings.VectorStore.URL},
		{keyVectorPath, settings.VectorStore.Path},
		{keyRetrievalType, string(settings.Retrieval.SearchType)},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalFetchK, settings.Retrieval.FetchK},
		{keyRetrievalLambda, settings.Retrieval.Lambda},
		{keyContextBudget, settings.Context.Budget},
		{keyContextTruncate, string(settings.Context.Truncation)},
		{keyLimitEmbedRPS, settings.Limits.EmbedRPS},
		{keyLimitBreaker, settings.Limits.BreakerFailures},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if cfg := settings.Pipeline.GetProcessorConfig("chunker"); cfg != nil {
		if size, ok := cfg["chunk_size"]; ok {
			if err := s.configStore.Set(keyChunkSize, size); err != nil {
				return fmt.Errorf("save %s: %w", keyChunkSize, err)
			}
		}
		if overlap, ok := cfg["overlap"]; ok {
			if err := s.configStore.Set(keyChunkOverlap, overlap); err != nil {
				return fmt.Errorf("save %s: %w", keyChunkOverlap, err)
			}
		}
	}

	if err := s.saveSecret(keyEmbedAPIKey, settings.Embedding.APIKey, settings.Embedding.Provider); err != nil {
		return err
	}
	if err := s.saveSecret(keyLLMAPIKey, settings.LLM.APIKey, settings.LLM.Provider); err != nil {
		return err
	}
	if settings.VectorStore.APIKey != "" && settings.VectorStore.APIKey != s.env(keyVectorAPIKey) {
		if err := s.configStore.Set(keyVectorAPIKey, settings.VectorStore.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyVectorAPIKey, err)
		}
	}

	return nil
}

func (s *SettingsService) saveSecret(key, value string, provider domain.AIProvider) error {
	if value == "" || value == s.envAPIKey(key, provider) {
		return nil
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// The collection dimension follows the model when the model is known.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envAPIKey(keyEmbedAPIKey, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Embedding.Provider = provider

	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.VectorStore.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envAPIKey(keyLLMAPIKey, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetVectorBackend configures the vector store backend.
// An empty url selects the backend's default address.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend, url string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.VectorStore.Backend = backend
	switch {
	case !backend.IsRemote():
		settings.VectorStore.URL = ""
	case url != "":
		settings.VectorStore.URL = url
	default:
		settings.VectorStore.URL = domain.DefaultVectorURLs()[backend]
	}

	return s.Save(settings)
}

// Validate checks that the current settings can build a pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks settings without touching any provider.
func ValidateSettings(settings *domain.AppSettings) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), settings.Embedding.Provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured (missing API key?)",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider %s is not configured (missing API key?)",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}

	vs := settings.VectorStore
	if !vs.Backend.IsValid() {
		return fmt.Errorf("%w: invalid vector backend: %s", domain.ErrInvalidInput, vs.Backend)
	}
	if vs.Dimensions <= 0 {
		return fmt.Errorf("%w: vector_store.dimensions must be positive", domain.ErrInvalidInput)
	}

	r := settings.Retrieval
	if !r.SearchType.IsValid() {
		return fmt.Errorf("%w: invalid search type: %s", domain.ErrInvalidInput, r.SearchType)
	}
	if r.K <= 0 {
		return fmt.Errorf("%w: retrieval.k must be positive", domain.ErrInvalidInput)
	}
	if r.FetchK < r.K {
		return fmt.Errorf("%w: retrieval.fetch_k (%d) must be at least k (%d)", domain.ErrInvalidInput, r.FetchK, r.K)
	}
	if r.Lambda < 0 || r.Lambda > 1 {
		return fmt.Errorf("%w: retrieval.lambda must be within [0, 1]", domain.ErrInvalidInput)
	}

	if settings.Context.Budget <= 0 {
		return fmt.Errorf("%w: context.budget must be positive", domain.ErrInvalidInput)
	}
	if !settings.Context.Truncation.IsValid() {
		return fmt.Errorf("%w: invalid truncation policy: %s", domain.ErrInvalidInput, settings.Context.Truncation)
	}

	if cfg := settings.Pipeline.GetProcessorConfig("chunker"); cfg != nil {
		size, _ := toInt(cfg["chunk_size"])
		overlap, _ := toInt(cfg["overlap"])
		if size <= 0 {
			return fmt.Errorf("%w: chunking.chunk_size must be positive", domain.ErrInvalidInput)
		}
		if overlap < 0 || overlap >= size {
			return fmt.Errorf("%w: chunking.overlap must be in [0, chunk_size)", domain.ErrInvalidInput)
		}
	}

	if settings.Limits.EmbedRPS < 0 || settings.Limits.BreakerFailures < 0 {
		return fmt.Errorf("%w: limits must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// chunking.* keys override the chunker defaults.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		cfg.Processors = processors
	}

	chunker := cfg.ProcessorConfigs["chunker"]
	chunker["chunk_size"] = s.getInt(keyChunkSize, domain.DefaultChunkSize)
	chunker["overlap"] = s.getInt(keyChunkOverlap, domain.DefaultChunkOverlap)
	if seps := s.configStore.GetStringSlice(keyChunkSeparators); len(seps) > 0 {
		chunker["separators"] = seps
	}

	return cfg
}

// Helper methods for reading config with environment fallback and defaults.

// EnvName returns the environment variable consulted for a config key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *SettingsService) env(key string) string {
	if v, ok := s.lookupEnv(EnvName(key)); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// envAPIKey prefers DOCQA_* and falls back to the provider's conventional variable.
func (s *SettingsService) envAPIKey(key string, provider domain.AIProvider) string {
	if v := s.env(key); v != "" {
		return v
	}
	var name string
	switch provider {
	case domain.AIProviderOpenAI:
		name = "OPENAI_API_KEY"
	case domain.AIProviderAnthropic:
		name = "ANTHROPIC_API_KEY"
	default:
		return ""
	}
	v, _ := s.lookupEnv(name)
	return strings.TrimSpace(v)
}

func (s *SettingsService) getAPIKey(key string, provider domain.AIProvider) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return s.envAPIKey(key, provider)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	if val := s.env(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetInt(key)
	}
	if val := s.env(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetFloat(key)
	}
	if val := s.env(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.getString(key, ""))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.getString(keyVectorBackend, ""))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getStrategy(defaultVal domain.RetrievalStrategy) domain.RetrievalStrategy {
	strategy := domain.RetrievalStrategy(s.getString(keyRetrievalType, ""))
	if !strategy.IsValid() {
		return defaultVal
	}
	return strategy
}

func (s *SettingsService) getTruncation(defaultVal domain.TruncationPolicy) domain.TruncationPolicy {
	policy := domain.TruncationPolicy(s.getString(keyContextTruncate, ""))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

// toInt handles the numeric types config values pick up from TOML and code.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
