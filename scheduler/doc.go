// Package scheduler provides at-least-once delivery of ingestion jobs.
//
// EnqueueIngest persists a job record and hands the URL to a worker pool.
// Transient failures are retried with exponential backoff; content and
// configuration failures fail the job immediately with a diagnostic reason.
// Every state transition is persisted, so Recover can re-run jobs that
// were queued or running when the process stopped.
//
// A job may therefore run more than once. That is safe because ingestion
// is idempotent per URL: re-running replaces the document and its vectors
// rather than duplicating them.
package scheduler
