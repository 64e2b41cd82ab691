// Package api defines wire-format types and converters for the IPC layer. It
// translates internal queue models into transport-friendly DTOs so the CLI can
// render daemon state without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress, output
// paths keyed by format, and review state.
//
// WorkflowStatus: daemon running state, queue stats, and last processed item.
//
// DaemonStatus: aggregated runtime information including external dependency
// availability.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds. Output paths
// are decoded from the stored JSON column into a plain map so consumers never
// see the raw encoding.
package api
