// Package async runs documents through the pipeline in the background and
// keeps the served model fresh.
package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docclass/internal/pipeline"
)

// Job is one file waiting for a worker.
type Job struct {
	ID          uuid.UUID
	Path        string
	SubmittedAt time.Time
}

func NewJob(path string) Job {
	return Job{ID: uuid.New(), Path: path, SubmittedAt: time.Now().UTC()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// FileProcessor is satisfied by *pipeline.Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (pipeline.Outcome, error)
}
