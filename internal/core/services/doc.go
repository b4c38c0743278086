// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The sync side is built from small collaborators: extractors read
// changed records, the Transformer shapes them into index documents, the
// BulkIndexer writes them, the TombstoneScanner removes ineligible
// entities and the CheckpointAdvancer moves the per-stream watermark.
// SyncOrchestrator wires them into one run. SearchService fans queries
// out to every category and merges the results.
package services
