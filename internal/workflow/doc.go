// Package workflow drives queue items through the processing pipeline.
//
// The Manager runs three loops. The queue loop reclaims stale work via
// heartbeats, claims the oldest pending item, and hands it to the pipeline
// processor while a heartbeat goroutine keeps the claim fresh. The watch loop
// scans the configured watch directory and enqueues new media files,
// deduplicated by fingerprint. A cron-scheduled maintenance job resets stuck
// items and prunes cache entries whose source file disappeared.
//
// Failures map to queue statuses through the service error taxonomy:
// validation and configuration problems park the item for review, a
// cancellation returns it to pending, and everything else marks it failed.
package workflow
