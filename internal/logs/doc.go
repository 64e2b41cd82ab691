// Package logs provides bounded-memory log file tailing shared by the CLI
// and the daemon's IPC surface.
//
// Offsets are byte positions into the file; a negative offset means "the last
// Limit lines". Follow mode polls until a new line arrives, the wait elapses,
// or the context ends, so follow-style commands shut down cleanly when the
// caller exits.
package logs
