package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/ocr"
)

// PDFSource reads text-layer pages and falls back to OCR for scanned statements.
type PDFSource struct {
	ocr        *ocr.Extractor
	emptyRatio float64
	logger     *slog.Logger
}

func NewPDFSource(e *ocr.Extractor, emptyRatio float64, logger *slog.Logger) *PDFSource {
	if logger == nil {
		logger = slog.Default()
	}
	if emptyRatio <= 0 || emptyRatio > 1 {
		emptyRatio = constants.OCREmptyPageRatio
	}
	return &PDFSource{ocr: e, emptyRatio: emptyRatio, logger: logger}
}

func (s *PDFSource) Pages(ctx context.Context, path, password string) (PagesResult, error) {
	start := time.Now()
	res := PagesResult{SourceType: constants.PDF, Method: "pdf-text"}

	info, err := inspectPDF(path, password, s.logger)
	res.Encrypted = info.encrypted
	if err != nil {
		return res, err
	}

	pages, warns, err := s.ocr.PDFPages(ctx, path, password)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		s.logger.Error("extract.pdf.text_failed", "path", path, "error", err)
		return res, common.NewAppError("PDF_TEXT_FAILED", "could not read PDF text", common.ErrUnreadableDocument)
	}
	for len(pages) < info.pageCount {
		pages = append(pages, "")
	}

	if NeedsOCR(pages, s.emptyRatio) {
		s.logger.Info("extract.pdf.ocr_fallback", "path", path, "pages", len(pages))
		ocrPages, w, err := s.ocr.OCRPages(ctx, path, password)
		res.Warnings = append(res.Warnings, w...)
		if err != nil {
			s.logger.Warn("extract.pdf.ocr_failed", "path", path, "error", err)
		} else {
			pages = MergeOCR(pages, ocrPages)
			res.Method = "pdf-text+ocr"
		}
	}

	res.Pages = pages
	res.Duration = time.Since(start)
	s.logger.Info("extract.pdf.ok",
		"path", path,
		"pages", len(pages),
		"method", res.Method,
		"encrypted", res.Encrypted,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// NeedsOCR is true when more than ratio of the pages have no text.
func NeedsOCR(pages []string, ratio float64) bool {
	if len(pages) == 0 {
		return false
	}
	empty := 0
	for _, p := range pages {
		if trimSpace(p) == "" {
			empty++
		}
	}
	return float64(empty)/float64(len(pages)) > ratio
}

// MergeOCR keeps text-layer pages and fills only the empty ones from OCR.
func MergeOCR(text, ocrPages []string) []string {
	n := max(len(text), len(ocrPages))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		var t, o string
		if i < len(text) {
			t = text[i]
		}
		if i < len(ocrPages) {
			o = ocrPages[i]
		}
		if trimSpace(t) != "" {
			out[i] = t
		} else {
			out[i] = o
		}
	}
	return out
}

func trimSpace(s string) string { return strings.TrimSpace(s) }
