package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docclass/constants"
)

// AllowedExt checks if a file extension is in the allowed set (pdf).
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

func allowed(path string, exts map[string]struct{}) bool {
	if exts == nil {
		return AllowedExt(filepath.Ext(path))
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}
