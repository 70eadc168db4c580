// Package fileset expands the file arguments given to docqa into paths.
package fileset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsPattern reports whether arg contains glob syntax.
func IsPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// Expand turns files, directories and doublestar globs into a list of file
// paths. Glob matches and directory contents are kept only when supports
// accepts them; plain file arguments always pass through so unsupported or
// missing files are reported by the indexer. The result has no duplicates
// and keeps argument order.
func Expand(args []string, supports func(path string) bool) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, arg := range args {
		if arg == "" {
			continue
		}

		pattern := ""
		switch {
		case IsPattern(arg):
			pattern = arg
		default:
			info, err := os.Stat(arg)
			if err != nil || !info.IsDir() {
				add(arg)
				continue
			}
			pattern = filepath.Join(arg, "**", "*")
		}

		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("expanding %q: %w", arg, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		for _, m := range matches {
			if supports == nil || supports(m) {
				add(m)
			}
		}
	}
	return out, nil
}

// Match reports whether path matches any of patterns. Patterns without a
// separator are matched against the base name, so "*.pdf" matches in any
// directory. An empty pattern list matches everything.
func Match(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, p := range patterns {
		target := slashed
		if !strings.Contains(p, "/") {
			target = base
		}
		if ok, err := doublestar.Match(p, target); err == nil && ok {
			return true
		}
	}
	return false
}
