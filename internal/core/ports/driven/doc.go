// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Generates vectors for sentences, chunks and queries
//   - TokenEstimator: Approximate token counts for size normalisation
//   - Normaliser / NormaliserRegistry: Turn raw bytes into documents
//   - PostProcessor / PostProcessorPipeline: Segment and embed documents
//   - DocumentStore: Document and chunk persistence (SQLite)
//   - VectorIndex: Per-modality similarity search
//   - ConfigStore: Application configuration (TOML)
//
// # Optional Interfaces
//
// A second EmbeddingService and VectorIndex for the image modality. Without
// them search runs on text alone and fusion passes text scores through.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
