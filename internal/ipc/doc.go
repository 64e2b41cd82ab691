// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Queue
// entries cross the wire as api.QueueItem so the CLI renders the same shape
// whether it talked to the daemon or fell back to reading the store directly.
//
// Add new RPC endpoints here rather than inventing side channels; the method
// set is the complete control surface of a running daemon.
package ipc
