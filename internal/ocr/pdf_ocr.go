package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// OCRPages rasterizes every page and runs tesseract on each, returning one
// string per rendered page. A page that fails OCR comes back empty with a warning.
func (e *Extractor) OCRPages(ctx context.Context, path, password string) ([]string, []string, error) {
	tmpDir, err := os.MkdirTemp("", "stmt-pp-*")
	if err != nil {
		return nil, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("ocr.tmpdir.cleanup_failed", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-upw pw] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, prefix)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...)
	if err != nil {
		return nil, []string{strings.TrimSpace(string(errb))}, fmt.Errorf("pdftoppm: %w", err)
	}

	// prefix-1.png, prefix-2.png, ... (zero-padded when there are 10+ pages)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	pages := make([]string, len(matches))
	var warns []string
	for i, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pages[i] = Normalize(txt)
	}
	return pages, warns, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndex(base, "-")
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{strings.TrimSpace(string(errb))}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}
