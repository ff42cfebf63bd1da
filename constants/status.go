package constants

// JobStatus is the canonical status for rows in document_results.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued       JobStatus = "QUEUED"       // accepted, waiting for a worker
	JobStatusRunning      JobStatus = "RUNNING"      // in progress
	JobStatusClassified   JobStatus = "CLASSIFIED"   // label known, fields not extracted
	JobStatusExtracted    JobStatus = "EXTRACTED"    // label and fields stored
	JobStatusUnrecognized JobStatus = "UNRECOGNIZED" // posterior below threshold
	JobStatusFailed       JobStatus = "FAILED"       // terminal failure
)
