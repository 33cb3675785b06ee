// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - RemoteSyncClient: The server change feed (HTTP gateway or recorded fixture)
//   - ResourceStore: Local persistence of notebooks, chunks and notes
//   - SchedulerStore: Daemon task state and history
//   - ConfigStore: Application configuration file
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
