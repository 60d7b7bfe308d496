// Package bootstrap wires configuration into the components both binaries share.
package bootstrap

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/extract"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm/ollama"
	"github.com/joseph-ayodele/statement-analyzer/internal/llm/openai"
	"github.com/joseph-ayodele/statement-analyzer/internal/ocr"
	"github.com/joseph-ayodele/statement-analyzer/internal/pipeline"
	"github.com/joseph-ayodele/statement-analyzer/internal/progress"
)

// ModelBackend is a model client that can also be health-checked.
type ModelBackend interface {
	llm.ModelClient
	llm.Pinger
}

// Components is everything needed to analyze a statement.
type Components struct {
	Client    ModelBackend
	Source    extract.PageSource
	Progress  *progress.Store
	Processor *pipeline.Processor
}

// NewLogger builds the process logger. Text output drops time and level like
// the console tools expect; JSON output keeps them for log shippers.
func NewLogger(w io.Writer, jsonOutput bool, level slog.Level) *slog.Logger {
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// NewModelClient picks the backend named by cfg.Provider.
func NewModelClient(cfg common.LLMConfig, logger *slog.Logger) (ModelBackend, error) {
	switch cfg.Provider {
	case "", common.ProviderOllama:
		return ollama.NewClient(ollama.Config{
			Endpoint:    cfg.Endpoint,
			StrictJSON:  cfg.StrictJSON,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			RatePerSec:  cfg.RatePerSec,
			RateBurst:   cfg.RateBurst,
		}, logger), nil
	case common.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			JSONMode:    cfg.StrictJSON,
		}, logger), nil
	default:
		return nil, common.InvalidInputErrorf("unknown LLM provider %q", cfg.Provider)
	}
}

// NewPageSource builds the extension router over PDF (text + OCR) and plain text.
func NewPageSource(cfg common.ExtractConfig, logger *slog.Logger) extract.PageSource {
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.Pdftotext,
		Pdftoppm:      cfg.Pdftoppm,
		Tesseract:     cfg.Tesseract,
		TesseractLang: cfg.TesseractLang,
		TessdataDir:   cfg.TessdataDir,
		DPI:           cfg.DPI,
	}, logger)
	return extract.Router{
		PDF:  extract.NewPDFSource(extractor, cfg.OCREmptyRatio, logger),
		Text: extract.TextSource{},
	}
}

// Build wires the shared components from a validated config.
func Build(cfg *common.Config, logger *slog.Logger) (*Components, error) {
	client, err := NewModelClient(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("model client: %w", err)
	}
	store := progress.NewStore(progress.Config{
		TTL:        cfg.Progress.TTL,
		MaxEntries: cfg.Progress.MaxEntries,
	}, logger)
	proc := pipeline.NewProcessor(logger, client, store, pipeline.Config{
		Models:        cfg.LLM.Models,
		PagesPerChunk: cfg.Pipeline.PagesPerChunk,
		HistoryLimit:  cfg.Pipeline.HistoryLimit,
	})
	return &Components{
		Client:    client,
		Source:    NewPageSource(cfg.Extract, logger),
		Progress:  store,
		Processor: proc,
	}, nil
}
