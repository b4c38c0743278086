// Package domain defines the core business entities for hubsearch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Checkpoint: The per-stream sync watermark
//   - Member, Team, Project, Event, ForumTopic, ForumPost: Source records
//   - IndexDocument: The uniform searchable shape written to the cluster
//   - Category / CategorySpec: The six fixed result categories and their index schema
//   - Query: A typed query tree rendered by search cluster adapters
//   - Hit / SearchResult: Ephemeral query results
//
// It also holds the pure rules shared by sync and query time: timestamp
// normalisation, display name shaping, excerpt truncation and score
// normalisation.
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
