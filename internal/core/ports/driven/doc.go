// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CheckpointStore: Per-stream watermark persistence (SQLite, bbolt, memory)
//   - RelationalSource: Changed and ineligible members/teams/projects/events (Postgres)
//   - ForumSource: Changed and deleted forum topics/posts (MongoDB)
//   - SearchCluster: Bulk write, search, multi-get and completion suggest
//     (Elasticsearch, bleve)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SchedulerStore: Scheduler state persistence. Without it the daemon
//     keeps task state in memory only.
//
// A nil RelationalSource or ForumSource disables that stream.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
