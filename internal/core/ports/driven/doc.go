// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Lists entries from a content source and writes status back
//   - ConnectorFactory: Creates connectors from source configuration
//   - DocumentIndex: Uploads documents into the external semantic index
//   - SourceStore: Source configuration persistence
//   - SyncStateStore: Sync progress persistence
//   - EntryStateStore: Local per-entry status for schema-less sources
//   - SchedulerStore: Scheduler task state and history
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
