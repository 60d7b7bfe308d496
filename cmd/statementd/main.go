package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/bootstrap"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/export"
	"github.com/joseph-ayodele/statement-analyzer/internal/ingest"
	svc "github.com/joseph-ayodele/statement-analyzer/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (defaults to $STATEMENT_CONFIG)")
	jsonLogs := flag.Bool("json-logs", false, "emit JSON logs")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	logger := bootstrap.NewLogger(os.Stdout, *jsonLogs, slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := bootstrap.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to wire components", "error", err)
		os.Exit(1)
	}
	comps.Progress.StartJanitor(ctx, cfg.Progress.SweepInterval)

	queue := async.NewProcessorQueue(comps.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.Timeout),
	)

	analyzer := svc.NewAnalyzerService(svc.Deps{
		Processor: comps.Processor,
		Progress:  comps.Progress,
		Source:    comps.Source,
		Exporter:  export.NewService(logger),
		Queue:     queue,
		MaxUpload: cfg.Server.MaxUploadBytes,
	}, logger)

	if cfg.Inbox.Dir != "" {
		outDir := cfg.Inbox.OutDir
		if outDir == "" {
			outDir = filepath.Join(cfg.Inbox.Dir, "reports")
		}
		ingestor := ingest.NewFSIngestor(comps.Source, comps.Processor, queue, outDir, logger)
		go func() {
			err := ingest.Serve(ctx, ingestor, ingest.WatchConfig{
				Roots:       []string{cfg.Inbox.Dir},
				InitialScan: cfg.Inbox.InitialScan,
				SkipHidden:  cfg.Inbox.SkipHidden,
				Debounce:    cfg.Inbox.Debounce,
				Logger:      logger,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("inbox stopped", "dir", cfg.Inbox.Dir, "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           analyzer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC server carries only the health service
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reporter := svc.NewHealthReporter(healthServer, comps.Client, cfg.Server.HealthInterval, logger)
	go reporter.Run(ctx)

	logger.Info("statement-analyzer listening",
		"http_addr", cfg.Server.HTTPAddr,
		"grpc_addr", cfg.Server.GRPCAddr,
		"provider", cfg.LLM.Provider,
		"models", cfg.LLM.Models,
	)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
