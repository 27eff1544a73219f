package resource

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// errUnsafePath marks client paths that are empty, absolute, or still
	// carry dot-dot segments after normalization.
	errUnsafePath = errors.New("unsafe path")

	// errNoSuchFile marks paths that are safe but match no regular file.
	errNoSuchFile = errors.New("no such file")
)

// resolvePublicPath maps a client-supplied relative path onto a regular
// file inside root, or fails. Lookup is two-tier: the exact relative path
// first, then the bare filename directly under root. The fallback lets
// clients fetch a pack by name even when they hold a stale or namespaced
// sub-path; filenames are assumed unique within the public tree.
//
// Both failure classes are reported to clients as 404 so that a blocked
// path is indistinguishable from a missing one.
func resolvePublicPath(root, raw string) (string, error) {
	if raw == "" || strings.HasPrefix(raw, "/") || strings.ContainsRune(raw, 0) {
		return "", errUnsafePath
	}

	norm := path.Clean(raw)
	if norm == "" || norm == "." || path.IsAbs(norm) {
		return "", errUnsafePath
	}

	// Clean keeps leading dot-dot segments on relative paths; any that
	// survive would escape root.
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", errUnsafePath
		}
	}

	candidate := filepath.Join(root, filepath.FromSlash(norm))
	if isRegularFile(candidate) {
		return candidate, nil
	}

	// Single-filename join; cannot escape root.
	fallback := filepath.Join(root, path.Base(norm))
	if isRegularFile(fallback) {
		return fallback, nil
	}

	return "", errNoSuchFile
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
