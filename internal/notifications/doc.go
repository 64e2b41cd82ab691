// Package notifications pushes workflow events to ntfy.
//
// The service is built from configuration: without a topic it degrades to a
// no-op, and the items/batches/errors switches silence whole event groups.
// Workflow code depends only on the Service interface, so failures to deliver
// are the caller's to log and never to act on.
package notifications
