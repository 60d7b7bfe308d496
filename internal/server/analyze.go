package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

const enqueueWait = 5 * time.Second

// prepare reads the request and registers a job for it.
func (s *AnalyzerService) prepare(w http.ResponseWriter, r *http.Request) (*pipeline.Job, error) {
	req, warnings, err := s.readRequest(w, r)
	if err != nil {
		return nil, err
	}
	job, err := s.processor.Prepare(req)
	if err != nil {
		return nil, err
	}
	for _, msg := range warnings {
		s.progress.Bump(job.ID, "Extraction: "+msg, nil)
	}
	w.Header().Set("X-Job-Id", job.ID)
	return job, nil
}

// handleAnalyzeMulti runs the whole analysis inside the request.
func (s *AnalyzerService) handleAnalyzeMulti(w http.ResponseWriter, r *http.Request) {
	job, err := s.prepare(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
	rep, err := s.processor.Execute(ctx, job)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleSubmitJob registers the job, hands it to the queue and answers 202.
func (s *AnalyzerService) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "async jobs are disabled"})
		return
	}
	job, err := s.prepare(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), enqueueWait)
	defer cancel()
	err = s.queue.Enqueue(ctx, async.Job{Job: job, SubmittedAt: time.Now(), RequestID: middleware.GetReqID(r.Context())})
	if err != nil {
		s.progress.Fail(job.ID, err)
		s.progress.Finish(job.ID)
		if errors.Is(err, async.ErrQueueClosed) || errors.Is(err, context.DeadlineExceeded) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error(), "job_id": job.ID})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID, "status_url": "/progress/" + job.ID})
}
