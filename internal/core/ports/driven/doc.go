// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser / NormaliserRegistry: Load files into documents by kind
//   - PostProcessor: Split documents into chunks
//   - EmbeddingService: Turn text into fixed-dimension vectors
//   - VectorStore: Collection-based nearest-neighbour storage
//   - LLMService: Chat completion over role-tagged messages
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - CandidateSearcher: Vector stores that return candidate vectors enable
//     diversity-aware (MMR) retrieval. Without it, retrieval uses similarity.
//   - PromptStore: User-editable prompt templates. Without it, embedded defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
