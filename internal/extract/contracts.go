package extract

import (
	"context"
	"time"
)

// PageSource turns a statement file into per-page text.
type PageSource interface {
	Pages(ctx context.Context, path, password string) (PagesResult, error)
}

type PagesResult struct {
	Pages      []string
	SourceType string // constants.PDF | constants.TXT
	Method     string // "pdf-text" | "pdf-text+ocr" | "text"
	Encrypted  bool
	Duration   time.Duration
	Warnings   []string
}

// Readable reports whether at least one page has text.
func (r PagesResult) Readable() bool {
	for _, p := range r.Pages {
		if len(trimSpace(p)) > 0 {
			return true
		}
	}
	return false
}
