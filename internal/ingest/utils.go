package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/statement-analyzer/constants"
)

// AllowedExt checks if a file extension is a statement format we read.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// reportStem is the file name without its extension.
func reportStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
