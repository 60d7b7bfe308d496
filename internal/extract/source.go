package extract

import (
	"context"
	"path/filepath"

	"github.com/joseph-ayodele/statement-analyzer/constants"
	"github.com/joseph-ayodele/statement-analyzer/internal/common"
)

// Router picks a PageSource by file extension.
type Router struct {
	PDF  PageSource
	Text PageSource
}

func (r Router) Pages(ctx context.Context, path, password string) (PagesResult, error) {
	ext := filepath.Ext(path)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return r.PDF.Pages(ctx, path, password)
	case constants.TXT:
		return r.Text.Pages(ctx, path, password)
	default:
		return PagesResult{}, common.InvalidInputErrorf("unsupported statement type %q", constants.NormalizeExt(ext))
	}
}
