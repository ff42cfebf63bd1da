package constants

import "strings"

// AllowedExtensions holds the extensions picked up by corpus loading, batch runs and the inbox watcher.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// ModelArtifactExtensions holds the extensions the model reloader reacts to.
var ModelArtifactExtensions = map[string]struct{}{
	"json": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
