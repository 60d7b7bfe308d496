package constants

import "strings"

// Source formats accepted as statement input.
const (
	PDF = "PDF"
	TXT = "TXT"
)

// AllowedExtensions holds the file extensions a statement can be uploaded as.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
	"txt": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to a source format, or "" if unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "txt":
		return TXT
	default:
		return ""
	}
}
