package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	JobID        string
	Deduplicated bool
	HashHex      string
	FileExt      string
	Pages        int
	SubmittedAt  time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the inbox loop depends on.
type Ingestor interface {
	// IngestPath submits a single statement file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory submits all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// Preparer registers a job without running it; *pipeline.Processor satisfies it.
type Preparer interface {
	Prepare(req pipeline.Request) (*pipeline.Job, error)
}
