package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
	"github.com/joseph-ayodele/statement-analyzer/internal/extract"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

// FSIngestor submits statements from the local filesystem to the job queue and
// writes each finished report to OutDir. Files are deduplicated by content hash
// for the life of the process.
type FSIngestor struct {
	Source extract.PageSource
	Prep   Preparer
	Queue  async.Queue
	OutDir string
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> job id ("" while submitting)
}

func NewFSIngestor(source extract.PageSource, prep Preparer, queue async.Queue, outDir string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Source: source,
		Prep:   prep,
		Queue:  queue,
		OutDir: outDir,
		logger: logger,
		seen:   make(map[string]string),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, common.InvalidInputErrorf("unsupported or missing extension %q", ext)
	}
	out.FileExt = ext

	sum, err := hashFile(abs)
	if err != nil {
		return out, err
	}
	out.HashHex = sum

	if jobID, dup := i.reserve(sum); dup {
		out.JobID = jobID
		out.Deduplicated = true
		i.logger.Info("ingest.deduplicated", "path", abs, "hash", sum, "job_id", jobID)
		return out, nil
	}

	jobID, pages, err := i.submit(ctx, abs)
	if err != nil {
		i.release(sum)
		return out, err
	}
	i.commit(sum, jobID)

	out.JobID = jobID
	out.Pages = pages
	out.SubmittedAt = time.Now().UTC()
	i.logger.Info("ingest.submitted", "path", abs, "hash", sum, "job_id", jobID, "pages", pages)
	return out, nil
}

func (i *FSIngestor) submit(ctx context.Context, path string) (string, int, error) {
	res, err := i.Source.Pages(ctx, path, "")
	if err != nil {
		return "", 0, err
	}
	job, err := i.Prep.Prepare(pipeline.Request{Pages: res.Pages})
	if err != nil {
		return "", 0, err
	}
	err = i.Queue.Enqueue(ctx, async.Job{
		Job:         job,
		SubmittedAt: time.Now(),
		OnDone: func(rep *entity.MultiModelReport, err error) {
			i.writeReport(path, job.ID, rep, err)
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("enqueue %s: %w", filepath.Base(path), err)
	}
	return job.ID, len(res.Pages), nil
}

// writeReport drops <stem>.report.json, or <stem>.error.json when the job failed.
func (i *FSIngestor) writeReport(source, jobID string, rep *entity.MultiModelReport, jobErr error) {
	dir := i.OutDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(source), "reports")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		i.logger.Error("ingest.report.mkdir_failed", "dir", dir, "error", err)
		return
	}

	name := reportStem(source) + ".report.json"
	var payload any = rep
	if jobErr != nil || rep == nil {
		name = reportStem(source) + ".error.json"
		msg := "no report produced"
		if jobErr != nil {
			msg = jobErr.Error()
		}
		payload = map[string]string{"job_id": jobID, "source": source, "error": msg}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		i.logger.Error("ingest.report.marshal_failed", "job_id", jobID, "error", err)
		return
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		i.logger.Error("ingest.report.write_failed", "path", dst, "error", err)
		return
	}
	i.logger.Info("ingest.report.written", "job_id", jobID, "path", dst)
}

func (i *FSIngestor) reserve(sum string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.seen[sum]; ok {
		return id, true
	}
	i.seen[sum] = ""
	return "", false
}

func (i *FSIngestor) commit(sum, jobID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.seen[sum] = jobID
}

func (i *FSIngestor) release(sum string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, sum)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}
	outAbs, _ := filepath.Abs(i.OutDir)

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); i.OutDir != "" && abs == outAbs {
				return filepath.SkipDir
			}
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
