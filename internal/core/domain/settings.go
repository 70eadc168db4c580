package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls randomness. Answers default to 0.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend identifies a vector store implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory keeps the collection in process memory.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite persists the collection in a local SQLite file.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendQdrant uses a Qdrant server over its REST API.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendRedis stores vectors in Redis hashes.
	VectorBackendRedis VectorBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant, VectorBackendRedis:
		return true
	default:
		return false
	}
}

// IsRemote returns true if the backend needs a server URL.
func (b VectorBackend) IsRemote() bool {
	return b == VectorBackendQdrant || b == VectorBackendRedis
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "In-memory (process lifetime)"
	case VectorBackendSQLite:
		return "SQLite (local file)"
	case VectorBackendQdrant:
		return "Qdrant (server)"
	case VectorBackendRedis:
		return "Redis (server)"
	default:
		return unknownDescription
	}
}

// VectorStoreSettings holds vector collection configuration.
type VectorStoreSettings struct {
	// Backend selects the store implementation.
	Backend VectorBackend

	// Collection is the collection name.
	Collection string

	// Dimensions is the vector size. It must match the embedding model.
	Dimensions int

	// URL is the server address for remote backends.
	URL string

	// APIKey authenticates to remote backends (Qdrant api-key, Redis password).
	APIKey string

	// Path is the data directory for the SQLite backend.
	Path string
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	// SearchType is mmr or similarity.
	SearchType RetrievalStrategy

	// K is the number of chunks returned.
	K int

	// FetchK is the candidate pool size for MMR.
	FetchK int

	// Lambda weighs relevance against diversity (1 = relevance only).
	Lambda float64
}

// ContextSettings configures context assembly.
type ContextSettings struct {
	// Budget is the maximum context size in characters.
	Budget int

	// Truncation selects how oversized context is fitted to Budget.
	Truncation TruncationPolicy
}

// LimitSettings configures provider call protection.
type LimitSettings struct {
	// EmbedRPS caps embedding requests per second. Zero disables throttling.
	EmbedRPS float64

	// BreakerFailures is the consecutive chat failures that open the breaker.
	// Zero disables the breaker.
	BreakerFailures int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds chat model settings.
	LLM LLMSettings

	// VectorStore holds vector collection settings.
	VectorStore VectorStoreSettings

	// Retrieval holds retriever settings.
	Retrieval RetrievalSettings

	// Context holds context assembly settings.
	Context ContextSettings

	// Pipeline holds chunking pipeline settings.
	Pipeline PipelineConfig

	// Limits holds provider protection settings.
	Limits LimitSettings
}

// Default values shared by settings and services.
const (
	DefaultCollection      = "docqa_documents"
	DefaultDimensions      = 1536
	DefaultK               = 10
	DefaultFetchK          = 20
	DefaultLambda          = 0.5
	DefaultContextBudget   = 6000
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultEmbedRPS        = 5.0
	DefaultBreakerFailures = 5
)

// DefaultAppSettings returns settings with sensible defaults.
// Provider API keys are left empty; they come from config or the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-small",
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		VectorStore: VectorStoreSettings{
			Backend:    VectorBackendSQLite,
			Collection: DefaultCollection,
			Dimensions: DefaultDimensions,
		},
		Retrieval: RetrievalSettings{
			SearchType: StrategyMMR,
			K:          DefaultK,
			FetchK:     DefaultFetchK,
			Lambda:     DefaultLambda,
		},
		Context: ContextSettings{
			Budget:     DefaultContextBudget,
			Truncation: TruncateDropChunks,
		},
		Pipeline: DefaultPipelineConfig(),
		Limits: LimitSettings{
			EmbedRPS:        DefaultEmbedRPS,
			BreakerFailures: DefaultBreakerFailures,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// AllLLMProviders returns providers that support chat.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// AllVectorBackends returns every vector backend, the default first.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendSQLite,
		VectorBackendMemory,
		VectorBackendQdrant,
		VectorBackendRedis,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultVectorURLs returns default server addresses for remote backends.
func DefaultVectorURLs() map[VectorBackend]string {
	return map[VectorBackend]string{
		VectorBackendQdrant: "http://localhost:6333",
		VectorBackendRedis:  "localhost:6379",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": DefaultChunkSize,
				"overlap":    DefaultChunkOverlap,
			},
		},
	}
}
