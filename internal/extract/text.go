package extract

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
	"github.com/joseph-ayodele/statement-analyzer/internal/ocr"
)

// TextSource reads a plain-text statement whose pages are separated by form feeds.
type TextSource struct{}

func (TextSource) Pages(_ context.Context, path, _ string) (PagesResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		return PagesResult{}, common.NewAppError("INVALID_INPUT", "read statement", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	return PagesResult{
		Pages:      ocr.SplitPages(string(raw)),
		SourceType: constants.TXT,
		Method:     "text",
		Duration:   time.Since(start),
	}, nil
}
