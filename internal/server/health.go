package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
)

// AnalyzerHealthService is the name reported on the gRPC health service.
const AnalyzerHealthService = "statement.Analyzer"

const pingTimeout = 5 * time.Second

// HealthReporter keeps the gRPC health status in step with the model endpoint.
type HealthReporter struct {
	server   *health.Server
	pinger   llm.Pinger
	interval time.Duration
	logger   *slog.Logger
	last     grpc_health_v1.HealthCheckResponse_ServingStatus
}

func NewHealthReporter(hs *health.Server, pinger llm.Pinger, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthReporter{server: hs, pinger: pinger, interval: interval, logger: logger}
}

// Check pings once and updates the analyzer status. The overall status ("")
// stays with the caller since the HTTP surface works without the model.
func (h *HealthReporter) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	err := h.pinger.Ping(ctx)
	if err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	if status != h.last {
		if err == nil {
			h.logger.Info("health.model_endpoint.up")
		} else {
			h.logger.Warn("health.model_endpoint.down", "error", err)
		}
		h.last = status
	}
	h.server.SetServingStatus(AnalyzerHealthService, status)
	return err == nil
}

// Run checks immediately, then on every tick until ctx is done.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
