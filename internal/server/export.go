package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *AnalyzerService) handleExport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rep, err := s.progress.Result(jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	xlsx, err := s.exporter.ExportReportXLSX(rep)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "job_id", jobID, "err", err)
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.xlsx"`, jobID))
	w.Header().Set("Content-Length", strconv.Itoa(len(xlsx)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}
