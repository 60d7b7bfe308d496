package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/ocr"
)

// scannedRunner has no text layer and OCRs every rendered page.
type scannedRunner struct {
	text  string
	pages int
}

func (r scannedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	switch name {
	case "pdftotext":
		return []byte(r.text), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= r.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		return []byte("scanned " + filepath.Base(args[0])), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNeedsOCR(t *testing.T) {
	assert.False(t, NeedsOCR(nil, 0.6))
	assert.False(t, NeedsOCR([]string{"a", "", "b"}, 0.6))
	assert.True(t, NeedsOCR([]string{"", " \n", "b"}, 0.6))
	assert.True(t, NeedsOCR([]string{""}, 0.6))
}

func TestMergeOCR(t *testing.T) {
	got := MergeOCR([]string{"text one", "", "  "}, []string{"ocr one", "ocr two", "ocr three", "ocr four"})
	assert.Equal(t, []string{"text one", "ocr two", "ocr three", "ocr four"}, got)
}

func TestTextSource_Pages(t *testing.T) {
	path := writeFile(t, "statement.txt", "page one\fpage two\f")

	res, err := TextSource{}.Pages(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"page one", "page two"}, res.Pages)
	assert.Equal(t, constants.TXT, res.SourceType)
	assert.Equal(t, "text", res.Method)
	assert.True(t, res.Readable())
}

func TestTextSource_Pages_Missing(t *testing.T) {
	_, err := TextSource{}.Pages(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRouter_Pages_UnsupportedExtension(t *testing.T) {
	r := Router{PDF: TextSource{}, Text: TextSource{}}

	_, err := r.Pages(context.Background(), "/tmp/statement.docx", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 400, common.HTTPStatus(err))
}

func TestRouter_Pages_Text(t *testing.T) {
	path := writeFile(t, "statement.TXT", "only page")
	r := Router{Text: TextSource{}}

	res, err := r.Pages(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"only page"}, res.Pages)
}

func TestPDFSource_Pages_OCRFallback(t *testing.T) {
	path := writeFile(t, "scan.pdf", "not really a pdf")
	ex := ocr.NewExtractor(ocr.Config{}, nil, ocr.WithRunner(scannedRunner{text: "\f\f", pages: 2}))
	src := NewPDFSource(ex, 0, nil)

	res, err := src.Pages(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, "pdf-text+ocr", res.Method)
	assert.Equal(t, []string{"scanned page-1.png", "scanned page-2.png"}, res.Pages)
	assert.Equal(t, constants.PDF, res.SourceType)
}

func TestPDFSource_Pages_TextLayer(t *testing.T) {
	path := writeFile(t, "text.pdf", "not really a pdf")
	ex := ocr.NewExtractor(ocr.Config{}, nil, ocr.WithRunner(scannedRunner{text: "one\ftwo\f"}))

	res, err := NewPDFSource(ex, 0.6, nil).Pages(context.Background(), path, "")
	require.NoError(t, err)

	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, []string{"one", "two"}, res.Pages)
}

func TestPDFSource_Pages_MissingFile(t *testing.T) {
	ex := ocr.NewExtractor(ocr.Config{}, nil, ocr.WithRunner(scannedRunner{}))

	_, err := NewPDFSource(ex, 0.6, nil).Pages(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIsPasswordErr(t *testing.T) {
	assert.True(t, isPasswordErr(fmt.Errorf("pdfcpu: please provide the correct password")))
	assert.True(t, isPasswordErr(fmt.Errorf("Decrypt failed")))
	assert.False(t, isPasswordErr(fmt.Errorf("no header version")))
}
