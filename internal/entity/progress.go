package entity

import (
	"time"

	"github.com/joseph-ayodele/statement-analyzer/constants"
)

// JobProgress is a point-in-time snapshot of a running or finished job.
type JobProgress struct {
	JobID       string              `json:"job_id"`
	Status      constants.JobStatus `json:"status"`
	ChunksTotal int                 `json:"chunks_total"`
	ChunksDone  int                 `json:"chunks_done"`
	Models      []string            `json:"models"`
	LastStep    string              `json:"last_step"`
	PerModelMS  map[string]int64    `json:"per_model_ms"`
	History     []string            `json:"history"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

// Percent returns completion in [0, 100].
func (p JobProgress) Percent() float64 {
	if p.ChunksTotal <= 0 {
		return 0
	}
	return 100 * float64(p.ChunksDone) / float64(p.ChunksTotal)
}
