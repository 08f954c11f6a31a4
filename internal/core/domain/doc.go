// Package domain defines the core business entities for kbsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Entry: A content record from a source database
//   - Source: A configured content source
//   - SyncState: Per-source synchronisation progress
//   - RunSummary: Aggregate counters for one sync run
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
