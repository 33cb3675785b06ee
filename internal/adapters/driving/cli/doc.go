// Package cli provides the notesync command line.
//
// Commands load configuration in the root command's PersistentPreRunE and
// build the application services on first use through the ServicesFactory
// passed to Execute, so the package does not depend on the composition root.
//
//	notesync sync                 full pass
//	notesync notebooks|chunks|notes|backfill
//	notesync status [--history N]
//	notesync daemon [--once]
//	notesync config show|get|set|keys|path
package cli
