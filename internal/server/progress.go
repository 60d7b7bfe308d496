package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/statement-analyzer/internal/entity"
	"github.com/joseph-ayodele/statement-analyzer/internal/progress"
)

// progressResponse is the snapshot plus the values a polling client renders.
type progressResponse struct {
	entity.JobProgress
	Percent float64 `json:"percent"`
	Bar     string  `json:"bar"`
}

func (s *AnalyzerService) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.progress.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{JobProgress: p, Percent: p.Percent(), Bar: progress.Bar(p)})
}

// handleResult answers 409 while the job is still running.
func (s *AnalyzerService) handleResult(w http.ResponseWriter, r *http.Request) {
	rep, err := s.progress.Result(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
