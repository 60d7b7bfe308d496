package progress

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
)

// Config is the eviction policy for finished jobs.
type Config struct {
	TTL        time.Duration // how long a finished job stays readable
	MaxEntries int           // hard cap; oldest finished jobs go first
}

type entry struct {
	progress entity.JobProgress
	perModel map[string]time.Duration
	result   *entity.MultiModelReport
}

// Store is the in-memory job progress table. It is safe for concurrent use:
// the orchestrator writes while HTTP pollers read snapshots.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

func NewStore(cfg Config, logger *slog.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.DefaultProgressTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = constants.DefaultMaxJobs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		jobs:   make(map[string]*entry),
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// Init registers a job. Re-initializing an existing id resets it.
func (s *Store) Init(jobID string, chunksTotal int, models []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	perModel := make(map[string]time.Duration, len(models))
	for _, m := range models {
		perModel[m] = 0
	}
	s.jobs[jobID] = &entry{
		progress: entity.JobProgress{
			JobID:       jobID,
			Status:      constants.JobStatusQueued,
			ChunksTotal: chunksTotal,
			Models:      slices.Clone(models),
			History:     []string{},
			StartedAt:   s.now(),
		},
		perModel: perModel,
	}
	s.enforceCapLocked()
}

// Start moves a queued job to running.
func (s *Store) Start(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[jobID]; ok && e.progress.Status == constants.JobStatusQueued {
		e.progress.Status = constants.JobStatusRunning
	}
}

// Bump records a step and adds per-model durations to the running totals.
// Either argument may be empty. Unknown jobs are ignored.
func (s *Store) Bump(jobID, step string, perModel map[string]time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if step != "" {
		e.progress.LastStep = step
		e.progress.History = append(e.progress.History, step)
	}
	for m, d := range perModel {
		e.perModel[m] += d
	}
}

// CompleteChunk advances chunks_done by one.
func (s *Store) CompleteChunk(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[jobID]; ok && e.progress.ChunksDone < e.progress.ChunksTotal {
		e.progress.ChunksDone++
	}
}

// Fail records a job-level error. The job still needs Finish.
func (s *Store) Fail(jobID string, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[jobID]; ok {
		e.progress.Error = err.Error()
		e.progress.Status = constants.JobStatusFailed
	}
}

// Finish stamps finished_at. The TTL clock starts here.
func (s *Store) Finish(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[jobID]
	if !ok || e.progress.FinishedAt != nil {
		return
	}
	t := s.now()
	e.progress.FinishedAt = &t
	if e.progress.Status != constants.JobStatusFailed {
		e.progress.Status = constants.JobStatusDone
	}
}

// SetResult keeps the final report next to the progress entry.
func (s *Store) SetResult(jobID string, rep *entity.MultiModelReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[jobID]; ok {
		e.result = rep
	}
}

// Get returns a deep copy of the job's progress, or common.ErrNotFound.
func (s *Store) Get(jobID string) (entity.JobProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return entity.JobProgress{}, common.NewAppError("JOB_NOT_FOUND", "job "+jobID, common.ErrNotFound)
	}
	return e.snapshot(), nil
}

// Result returns the finished report. A running job yields common.ErrConflict.
func (s *Store) Result(jobID string) (*entity.MultiModelReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return nil, common.NewAppError("JOB_NOT_FOUND", "job "+jobID, common.ErrNotFound)
	}
	if e.result == nil {
		if e.progress.Status == constants.JobStatusFailed {
			return nil, common.NewAppError("JOB_FAILED", e.progress.Error, common.ErrInternal)
		}
		return nil, common.NewAppError("JOB_RUNNING", "job "+jobID+" has not finished", common.ErrConflict)
	}
	return e.result, nil
}

// Len reports how many jobs are tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (e *entry) snapshot() entity.JobProgress {
	p := e.progress
	p.Models = slices.Clone(e.progress.Models)
	p.History = slices.Clone(e.progress.History)
	if p.History == nil {
		p.History = []string{}
	}
	if e.progress.FinishedAt != nil {
		t := *e.progress.FinishedAt
		p.FinishedAt = &t
	}
	p.PerModelMS = make(map[string]int64, len(e.perModel))
	for m, d := range e.perModel {
		p.PerModelMS[m] = d.Milliseconds()
	}
	return p
}

// Sweep drops finished jobs older than the TTL and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	cutoff := s.now().Add(-s.cfg.TTL)
	n := 0
	for id, e := range s.jobs {
		if f := e.progress.FinishedAt; f != nil && f.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	if n > 0 {
		s.logger.Info("progress.evicted", "reason", "ttl", "count", n)
	}
	return n
}

// enforceCapLocked evicts the oldest finished jobs until under the cap. Unfinished
// jobs are never evicted; the map may exceed the cap while they run.
func (s *Store) enforceCapLocked() {
	over := len(s.jobs) - s.cfg.MaxEntries
	if over <= 0 {
		return
	}
	finished := make([]string, 0, len(s.jobs))
	for id, e := range s.jobs {
		if e.progress.FinishedAt != nil {
			finished = append(finished, id)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return s.jobs[finished[i]].progress.FinishedAt.Before(*s.jobs[finished[j]].progress.FinishedAt)
	})
	n := min(over, len(finished))
	for _, id := range finished[:n] {
		delete(s.jobs, id)
	}
	if n > 0 {
		s.logger.Warn("progress.evicted", "reason", "max_entries", "count", n, "max_entries", s.cfg.MaxEntries)
	}
	if n < over {
		s.logger.Warn("progress.over_capacity", "entries", len(s.jobs), "max_entries", s.cfg.MaxEntries, "running", len(s.jobs)-len(finished)+n)
	}
}

// StartJanitor sweeps expired jobs every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
