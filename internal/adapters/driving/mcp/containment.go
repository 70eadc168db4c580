package mcp

import (
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// resolveWithin maps a client-supplied path to an absolute path inside root.
// The path is joined to root, cleaned and, where it exists, has symlinks
// evaluated. Anything that lands outside root fails with ErrPathOutsideRoot.
// root must already be absolute and symlink-free.
func resolveWithin(root, path string) (string, error) {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved := evalExisting(candidate)

	rel, err := filepath.Rel(root, resolved)
	if err != nil || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPathOutsideRoot
	}
	return resolved, nil
}

// evalExisting evaluates symlinks in the longest existing prefix of path
// and re-attaches the missing tail.
func evalExisting(path string) string {
	var tail []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved
		}
		parent := filepath.Dir(current)
		if parent == current {
			return path
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}
