package constants

import "time"

const (
	DefaultPagesPerChunk = 2
	MinPagesPerChunk     = 1
	MaxPagesPerChunk     = 5

	// DefaultHistoryLimit is how many recent progress steps a report carries.
	DefaultHistoryLimit = 12

	// AgreementTolerance is the widest spread (in currency units) still counted as agreement.
	AgreementTolerance = 1.0

	// OCREmptyPageRatio triggers OCR when more than this share of pages has no text.
	OCREmptyPageRatio = 0.6

	DefaultModel       = "mistral:7b-instruct"
	DefaultOllamaURL   = "http://localhost:11434/api/chat"
	DefaultLLMTimeout  = 180 * time.Second
	DefaultProgressTTL = time.Hour
	DefaultMaxJobs     = 1000
)
