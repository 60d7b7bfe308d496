package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is a prepared analysis waiting for a worker.
type Job struct {
	Job         *pipeline.Job
	SubmittedAt time.Time
	RequestID   string

	// OnDone, when set, receives the outcome after Execute returns.
	OnDone func(rep *entity.MultiModelReport, err error)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Executor runs a prepared job; *pipeline.Processor satisfies it.
type Executor interface {
	Execute(ctx context.Context, job *pipeline.Job) (*entity.MultiModelReport, error)
}
