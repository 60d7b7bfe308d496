package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/export"
	"github.com/joseph-ayodele/statement-analyzer/internal/extract"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
	"github.com/joseph-ayodele/statement-analyzer/internal/progress"
)

const defaultMaxUpload = 50 << 20

// AnalyzerService is the HTTP surface of the statement analyzer.
type AnalyzerService struct {
	processor *pipeline.Processor
	progress  *progress.Store
	source    extract.PageSource
	exporter  *export.Service
	queue     async.Queue
	maxUpload int64
	logger    *slog.Logger
}

type Deps struct {
	Processor *pipeline.Processor
	Progress  *progress.Store
	Source    extract.PageSource
	Exporter  *export.Service
	Queue     async.Queue // nil disables POST /jobs
	MaxUpload int64
}

func NewAnalyzerService(d Deps, logger *slog.Logger) *AnalyzerService {
	if logger == nil {
		logger = slog.Default()
	}
	if d.MaxUpload <= 0 {
		d.MaxUpload = defaultMaxUpload
	}
	return &AnalyzerService{
		processor: d.Processor,
		progress:  d.Progress,
		source:    d.Source,
		exporter:  d.Exporter,
		queue:     d.Queue,
		maxUpload: d.MaxUpload,
		logger:    logger,
	}
}

// RegisterHTTP mounts the analyzer routes on r.
func (s *AnalyzerService) RegisterHTTP(r chi.Router) {
	r.Post("/analyze-multi", s.handleAnalyzeMulti)
	r.Post("/jobs", s.handleSubmitJob)
	r.Get("/progress/{jobID}", s.handleProgress)
	r.Get("/jobs/{jobID}/result", s.handleResult)
	r.Get("/jobs/{jobID}/export.xlsx", s.handleExport)
	r.Get("/health", s.handleHealth)
}

// Router returns a chi router with the standard middleware and every route mounted.
func (s *AnalyzerService) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	s.RegisterHTTP(r)
	return r
}

func (s *AnalyzerService) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "jobs": s.progress.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *AnalyzerService) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	} else {
		s.logger.Warn("http.request.rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": publicMessage(err)})
}

// publicMessage drops the category prefix AppError adds for logs.
func publicMessage(err error) string {
	var app *common.AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return err.Error()
}
