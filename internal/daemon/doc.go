// Package daemon hosts the long-running scrivo process: it owns the workflow
// manager lifecycle, enforces single-instance execution with a file lock, and
// exposes the queue operations the IPC layer serves to the CLI.
//
// The daemon itself does no media processing; it delegates claiming and
// running queue items to workflow.Manager and persistence to queue.Store.
// AddFile is the manual ingestion path, sharing fingerprint identity with the
// watch loop and the result cache so re-adding an unchanged file is a no-op.
package daemon
