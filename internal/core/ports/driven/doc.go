// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - BookmarkStore: Bookmark persistence (owned by storage)
//   - TagStore: Tag and assignment persistence, with atomic per-bookmark writes
//   - EmbeddingStore: Model-versioned vector persistence
//   - TextIndex: Literal full-text search, populated by storage
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ModelProvider: Loads the lightweight and heavyweight tier models.
//     Without it only the rule tier classifies.
//   - EmbeddingService: Generates vector embeddings. Without it semantic
//     search is disabled and bookmarks are not embedded.
//   - LLMService: Local language model backing the heavyweight tier.
//   - ContentNormaliser: Turns captured markup into plain text.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
