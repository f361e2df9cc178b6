// Package domain defines the core business entities for tagmark.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Bookmark: A captured page with its metadata
//   - Tag / TagAssignment: Categorised labels and their confidence per bookmark
//   - EmbeddingRecord: A model-versioned vector for semantic lookup
//   - Query / SearchResult: Hybrid search requests and ranked hits
//   - EngineConfig: Read-only thresholds and weights set at startup
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
