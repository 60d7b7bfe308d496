package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/statement-analyzer/internal/bootstrap"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/export"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
)

var (
	configPath    string
	jsonLogs      bool
	password      string
	models        string
	pagesPerChunk int
	outPath       string
	xlsxPath      string
)

var rootCmd = &cobra.Command{
	Use:           "statement-analyze",
	Short:         "Extract bank statement transactions with several local models and compare their totals",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze one statement (PDF or TXT)",
	Long: `Reads the statement page by page (OCR for scanned PDFs), sends each chunk
of pages to every model, and prints the multi-model report as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs")

	analyzeCmd.Flags().StringVarP(&password, "password", "p", "", "password for an encrypted PDF")
	analyzeCmd.Flags().StringVarP(&models, "models", "m", "", "comma separated model names (default from config)")
	analyzeCmd.Flags().IntVarP(&pagesPerChunk, "pages-per-chunk", "c", 0, "pages per model request, 1-5 (default from config)")
	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the JSON report here instead of stdout")
	analyzeCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an Excel workbook")
	rootCmd.AddCommand(analyzeCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := comps.Source.Pages(ctx, args[0], password)
	if err != nil {
		return fmt.Errorf("read statement: %w", err)
	}
	for _, w := range res.Warnings {
		logger.Warn("extract.warning", "file", args[0], "warning", w)
	}

	rep, err := comps.Processor.Run(ctx, pipeline.Request{
		Pages:         res.Pages,
		Models:        splitModels(models),
		PagesPerChunk: pagesPerChunk,
	})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if outPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if xlsxPath != "" {
		xlsx, err := export.NewService(logger).ExportReportXLSX(rep)
		if err != nil {
			return err
		}
		if err := os.WriteFile(xlsxPath, xlsx, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
	}
	if !rep.Comparison.Agreement {
		logger.Warn("models disagree", "reason", rep.Comparison.Reason)
	}
	return nil
}

func splitModels(v string) []string {
	var out []string
	for _, m := range strings.Split(v, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// exitCode keeps input problems (2) apart from runtime failures (1).
func exitCode(err error) int {
	if errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrUnreadableDocument) {
		return 2
	}
	return 1
}
