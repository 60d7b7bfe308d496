package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/statement-analyzer/internal/async"
	"github.com/joseph-ayodele/statement-analyzer/internal/bootstrap"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/ingest"
)

var (
	batchOutDir     string
	batchWorkers    int
	batchShowHidden bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Analyze every statement under a directory",
	Long: `Walks the directory, skips files already seen by content hash, and writes
<name>.report.json (or <name>.error.json) for each statement into --out-dir.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutDir, "out-dir", "o", "", "report directory (default <dir>/reports)")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "statements analyzed at once (default from config)")
	batchCmd.Flags().BoolVar(&batchShowHidden, "include-hidden", false, "also read hidden files and directories")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := bootstrap.NewLogger(os.Stderr, jsonLogs, slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	comps, err := bootstrap.Build(cfg, logger)
	if err != nil {
		return err
	}

	root := args[0]
	outDir := batchOutDir
	if outDir == "" {
		outDir = filepath.Join(root, "reports")
	}
	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Queue.Workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := async.NewProcessorQueue(comps.Processor, logger,
		async.WithWorkers(workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.Timeout),
	)
	ingestor := ingest.NewFSIngestor(comps.Source, comps.Processor, queue, outDir, logger)

	results, stats, err := ingestor.IngestDirectory(ctx, root, !batchShowHidden)
	// Shutdown drains what was submitted; reports are written as jobs finish.
	queue.Shutdown(ctx)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != "" {
			logger.Warn("batch.file.failed", "path", r.SourcePath, "error", r.Err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d matched=%d submitted=%d deduplicated=%d failed=%d reports=%s\n",
		stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed, outDir)
	if stats.Failed > 0 {
		return fmt.Errorf("%d statement(s) could not be submitted", stats.Failed)
	}
	return nil
}
