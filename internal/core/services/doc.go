// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// SyncEngine replays the remote change feed into a ResourceStore and
// Scheduler runs it periodically for the daemon. Remote calls are paced
// and retried here, so adapters report failures as classified errors
// and never sleep or retry themselves.
package services
