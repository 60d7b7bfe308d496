package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner imitates poppler and tesseract: pdftoppm writes empty PNGs for
// the requested number of pages, tesseract echoes the image name.
type fakeRunner struct {
	mu       sync.Mutex
	pdftext  string
	pages    int
	failTess map[string]bool
	calls    [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	switch name {
	case "pdftotext":
		return []byte(f.pdftext), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), nil, 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		base := filepath.Base(args[0])
		if f.failTess[base] {
			return nil, []byte("bad image"), errors.New("exit status 1")
		}
		return []byte("text of " + base + "\r\n\n\n\n-----\nend  \n"), nil, nil
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func TestSplitPages(t *testing.T) {
	assert.Nil(t, SplitPages(""))
	assert.Equal(t, []string{"one", "two"}, SplitPages("one\ftwo\f"))
	assert.Equal(t, []string{"", "", "three"}, SplitPages("\f\fthree"))
	assert.Equal(t, []string{"a\nb"}, SplitPages("a\r\nb  \n\n"))
}

func TestExtractor_PDFPages(t *testing.T) {
	r := &fakeRunner{pdftext: "page one\fpage two\f"}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	pages, warns, err := e.PDFPages(context.Background(), "/tmp/s.pdf", "secret")
	require.NoError(t, err)

	assert.Empty(t, warns)
	assert.Equal(t, []string{"page one", "page two"}, pages)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", "-upw", "secret", "/tmp/s.pdf", "-"}, r.calls[0])
}

func TestExtractor_OCRPages_OrdersNumerically(t *testing.T) {
	r := &fakeRunner{pages: 11, failTess: map[string]bool{"page-3.png": true}}
	e := NewExtractor(Config{TesseractLang: "eng+fra", TessdataDir: "/data"}, nil, WithRunner(r))

	pages, warns, err := e.OCRPages(context.Background(), "/tmp/s.pdf", "")
	require.NoError(t, err)

	require.Len(t, pages, 11)
	assert.Equal(t, "text of page-1.png\n\nend", pages[0])
	assert.Equal(t, "text of page-2.png\n\nend", pages[1])
	assert.Empty(t, pages[2])
	assert.Equal(t, "text of page-10.png\n\nend", pages[9])
	assert.NotEmpty(t, warns)

	var tess []string
	for _, c := range r.calls {
		if c[0] == "tesseract" {
			tess = c
		}
	}
	assert.Contains(t, strings.Join(tess, " "), "-l eng+fra")
	assert.Contains(t, strings.Join(tess, " "), "--tessdata-dir /data")
}

func TestExtractor_OCRPages_NoImages(t *testing.T) {
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))

	_, warns, err := e.OCRPages(context.Background(), "/tmp/s.pdf", "")
	assert.Error(t, err)
	assert.Equal(t, []string{"pdftoppm produced no images"}, warns)
}

func TestNormalize(t *testing.T) {
	in := "DATE   AMOUNT  \r\n=====\n01/02  1,000.00\n\n\n\n\nTOTAL 1,000.00\n"
	assert.Equal(t, "DATE   AMOUNT\n\n01/02  1,000.00\n\nTOTAL 1,000.00", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestRedactArgs(t *testing.T) {
	assert.Equal(t, "-r 300 -upw *** in.pdf", redactArgs([]string{"-r", "300", "-upw", "hunter2", "in.pdf"}))
}
