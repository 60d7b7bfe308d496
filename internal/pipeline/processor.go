package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
	"github.com/joseph-ayodele/statement-analyzer/internal/progress"
	"github.com/joseph-ayodele/statement-analyzer/internal/report"
)

// NoParsableJSON heads the error recorded for a model that produced no pages.
const NoParsableJSON = "No parsable JSON from model."

// Config holds the defaults a Request can override.
type Config struct {
	Models        []string
	PagesPerChunk int
	HistoryLimit  int
}

// Request is one statement to analyze. Zero-valued overrides fall back to Config.
type Request struct {
	JobID         string
	Pages         []string
	Models        []string
	PagesPerChunk int
}

// Job is a validated, chunked request with a progress entry already created.
type Job struct {
	ID            string
	Models        []string
	Chunks        []entity.Chunk
	PagesPerChunk int
}

// Processor runs chunks through every model, repairs bad output once, and
// compares the per-model totals.
type Processor struct {
	logger   *slog.Logger
	client   llm.ModelClient
	progress *progress.Store
	cfg      Config
}

func NewProcessor(logger *slog.Logger, client llm.ModelClient, store *progress.Store, cfg Config) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PagesPerChunk == 0 {
		cfg.PagesPerChunk = constants.DefaultPagesPerChunk
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = constants.DefaultHistoryLimit
	}
	return &Processor{logger: logger, client: client, progress: store, cfg: cfg}
}

// Run prepares and executes a request in one go.
func (p *Processor) Run(ctx context.Context, req Request) (*entity.MultiModelReport, error) {
	job, err := p.Prepare(req)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, job)
}

// Prepare validates input and registers the job. Nothing is sent to a model here;
// a document without readable text is rejected with common.ErrUnreadableDocument.
func (p *Processor) Prepare(req Request) (*Job, error) {
	if !hasReadableText(req.Pages) {
		return nil, common.UnreadableDocumentError("no readable text found in document")
	}

	models := dedupe(req.Models)
	if len(models) == 0 {
		models = dedupe(p.cfg.Models)
	}
	if len(models) == 0 {
		return nil, common.InvalidInputErrorf("at least one model is required")
	}

	size := req.PagesPerChunk
	if size == 0 {
		size = p.cfg.PagesPerChunk
	}
	chunks, err := ChunkPages(entity.PagesFromTexts(req.Pages), size)
	if err != nil {
		return nil, err
	}

	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}
	p.progress.Init(id, len(chunks), models)
	p.progress.Bump(id, fmt.Sprintf("Prepared %d page(s) into %d chunk(s) of up to %d", len(req.Pages), len(chunks), size), nil)
	p.logger.Info("pipeline.job.prepared",
		"job_id", id,
		"pages", len(req.Pages),
		"chunks", len(chunks),
		"pages_per_chunk", size,
		"models", models,
	)
	return &Job{ID: id, Models: models, Chunks: chunks, PagesPerChunk: size}, nil
}

// chunkRecord is what one model left behind for one chunk.
type chunkRecord struct {
	chunk    int
	state    constants.CallState
	raw      string // final text kept for the diagnostic pass
	pages    []entity.PageExtraction
	err      error
	repaired bool
}

// Execute runs the job's chunks in order; models fan out within a chunk. The
// progress entry is always finished, whatever happens.
func (p *Processor) Execute(ctx context.Context, job *Job) (rep *entity.MultiModelReport, err error) {
	ctx = common.WithJobID(ctx, job.ID)
	start := time.Now()
	records := make(map[string][]chunkRecord, len(job.Models))
	totals := make(map[string]time.Duration, len(job.Models))

	defer func() {
		if r := recover(); r != nil {
			rep = nil
			err = common.NewAppError("PIPELINE_FAULT", fmt.Sprintf("unexpected failure: %v", r), common.ErrInternal)
		}
		if err != nil {
			p.progress.Fail(job.ID, err)
			p.logger.Error("pipeline.job.failed", "job_id", job.ID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		}
		p.progress.Finish(job.ID)
		if rep != nil {
			rep.Meta = p.meta(job, records, totals)
			p.progress.SetResult(job.ID, rep)
		}
	}()

	p.progress.Start(job.ID)
	total := len(job.Chunks)
	for i, ch := range job.Chunks {
		n := i + 1
		if cerr := ctx.Err(); cerr != nil {
			return nil, common.NewAppError("JOB_CANCELLED", fmt.Sprintf("stopped before chunk %d/%d", n, total), cerr)
		}

		p.progress.Bump(job.ID, fmt.Sprintf("Chunk %d/%d: sending %s to %d model(s)", n, total, describeChunk(ch), len(job.Models)), nil)
		prompt := llm.BuildPrompt(ch)
		outcomes := llm.FanOut(ctx, p.client, job.Models, prompt)

		elapsed := make(map[string]time.Duration, len(job.Models))
		for _, m := range job.Models {
			o := outcomes[m]
			rec, spent := p.settle(ctx, job.ID, n, m, prompt, o)
			elapsed[m] = o.Elapsed + spent
			totals[m] += elapsed[m]
			records[m] = append(records[m], rec)
		}

		p.progress.Bump(job.ID, fmt.Sprintf("Chunk %d/%d complete", n, total), elapsed)
		p.progress.CompleteChunk(job.ID)
		p.progress.LogProgress(job.ID)
	}

	rep = p.assemble(job, records)
	p.logger.Info("pipeline.job.ok",
		"job_id", job.ID,
		"models_ok", len(rep.ByModel),
		"models_failed", len(rep.Errors),
		"agreement", rep.Comparison.Agreement,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

// settle validates one model's answer for a chunk and, if needed, spends its
// single repair attempt. The returned duration is time spent repairing.
func (p *Processor) settle(ctx context.Context, jobID string, n int, model, prompt string, o llm.Outcome) (chunkRecord, time.Duration) {
	rec := chunkRecord{chunk: n, state: constants.CallSent}

	if o.Err != nil {
		rec.state, rec.err, rec.raw = constants.CallFailed, o.Err, o.Payload()
		p.progress.Bump(jobID, fmt.Sprintf("Chunk %d: %s failed (%s)", n, model, llm.ErrorTypeName(o.Err)), nil)
		p.logger.Warn("pipeline.chunk.call_failed", "job_id", jobID, "chunk", n, "model", model, "error", o.Err)
		return rec, 0
	}

	rec.raw = o.Text
	pages, perr := llm.ParseExtraction(o.Text)
	if perr == nil {
		rec.state, rec.pages = constants.CallValid, pages
		return rec, 0
	}

	rec.state = constants.CallInvalid
	p.logger.Info("pipeline.chunk.invalid", "job_id", jobID, "chunk", n, "model", model, "error", perr)
	p.progress.Bump(jobID, fmt.Sprintf("Chunk %d: %s returned invalid JSON, asking for a repair", n, model), nil)

	start := time.Now()
	fixed, rerr := p.client.Repair(ctx, model, prompt, o.Text)
	spent := time.Since(start)
	if rerr != nil {
		rec.state, rec.err = constants.CallFailed, rerr
		p.progress.Bump(jobID, fmt.Sprintf("Chunk %d: %s repair failed (%s)", n, model, llm.ErrorTypeName(rerr)), nil)
		p.logger.Warn("pipeline.chunk.repair_failed", "job_id", jobID, "chunk", n, "model", model, "error", rerr)
		return rec, spent
	}

	pages, perr = llm.ParseExtraction(fixed)
	if perr != nil {
		rec.state, rec.err = constants.CallFailed, perr
		p.progress.Bump(jobID, fmt.Sprintf("Chunk %d: %s repair failed (%s)", n, model, llm.ErrorTypeName(perr)), nil)
		p.logger.Warn("pipeline.chunk.repair_failed", "job_id", jobID, "chunk", n, "model", model, "error", perr)
		return rec, spent
	}

	rec.state, rec.raw, rec.pages, rec.repaired = constants.CallValid, fixed, pages, true
	p.progress.Bump(jobID, fmt.Sprintf("Chunk %d: %s repaired", n, model), nil)
	p.logger.Info("pipeline.chunk.repaired", "job_id", jobID, "chunk", n, "model", model, "elapsed_ms", spent.Milliseconds())
	return rec, spent
}

// assemble is the final pass: gather each model's pages, turn models with no
// pages into errors, and compare the rest.
func (p *Processor) assemble(job *Job, records map[string][]chunkRecord) *entity.MultiModelReport {
	rep := &entity.MultiModelReport{
		ByModel:  make(map[string]entity.FinalReport),
		Errors:   make(map[string]string),
		Warnings: make(map[string][]string),
	}

	for _, m := range job.Models {
		var pages []entity.PageExtraction
		var problems []string
		for _, rec := range records[m] {
			if rec.state == constants.CallValid {
				pages = append(pages, rec.pages...)
				continue
			}
			problems = append(problems, diagnose(rec))
		}

		if len(pages) == 0 {
			msg := NoParsableJSON
			if len(problems) > 0 {
				msg += " " + strings.Join(problems, "; ")
			}
			rep.Errors[m] = msg
			continue
		}
		rep.ByModel[m] = report.Aggregate(pages)
		if len(problems) > 0 {
			rep.Warnings[m] = problems
		}
	}

	rep.Comparison = report.Compare(job.Models, rep.ByModel)
	return rep
}

// diagnose re-reads a failed chunk's retained text and says why it is unusable.
func diagnose(rec chunkRecord) string {
	var te *llm.TransportError
	if errors.As(rec.err, &te) {
		return fmt.Sprintf("chunk %d: TransportError: %v", rec.chunk, te)
	}
	if _, err := llm.ParseExtraction(rec.raw); err != nil {
		return fmt.Sprintf("chunk %d: ParseError: %v", rec.chunk, err)
	}
	return fmt.Sprintf("chunk %d: %s", rec.chunk, rec.state)
}

func (p *Processor) meta(job *Job, records map[string][]chunkRecord, totals map[string]time.Duration) entity.JobMeta {
	meta := entity.JobMeta{
		JobID:       job.ID,
		Models:      slices.Clone(job.Models),
		ChunksTotal: len(job.Chunks),
		History:     []string{},
		PerModelMS:  make(map[string]int64, len(totals)),
		ChunkStatus: make(map[string][]entity.ChunkCallStatus, len(records)),
	}
	for m, d := range totals {
		meta.PerModelMS[m] = d.Milliseconds()
	}
	for m, recs := range records {
		for _, r := range recs {
			st := entity.ChunkCallStatus{Chunk: r.chunk, State: string(r.state), Repaired: r.repaired}
			if r.err != nil {
				st.Error = r.err.Error()
			}
			meta.ChunkStatus[m] = append(meta.ChunkStatus[m], st)
		}
	}

	snap, err := p.progress.Get(job.ID)
	if err != nil {
		// evicted under pressure; local numbers still stand
		return meta
	}
	meta.ChunksDone = snap.ChunksDone
	meta.PerModelMS = snap.PerModelMS
	meta.StartedAt = snap.StartedAt
	meta.FinishedAt = snap.FinishedAt
	if h := snap.History; len(h) > p.cfg.HistoryLimit {
		meta.History = h[len(h)-p.cfg.HistoryLimit:]
	} else {
		meta.History = h
	}
	return meta
}

func hasReadableText(pages []string) bool {
	for _, t := range pages {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

func dedupe(models []string) []string {
	out := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
