package ocr

import (
	"context"
	"fmt"
	"strings"
)

// PDFPages runs pdftotext in layout mode and splits the output on form feeds,
// one string per page. Column alignment is kept as-is for the models.
func (e *Extractor) PDFPages(ctx context.Context, path, password string) ([]string, []string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix [-upw pw] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		return nil, []string{strings.TrimSpace(string(errb))}, fmt.Errorf("pdftotext: %w", err)
	}
	return SplitPages(string(out)), nil, nil
}

// SplitPages splits form-feed separated text. pdftotext ends the last page with
// a form feed too, so a trailing empty segment is dropped.
func SplitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	for i := range pages {
		pages[i] = strings.TrimRight(strings.ReplaceAll(pages[i], "\r\n", "\n"), " \n")
	}
	return pages
}
