package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func evalRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func TestResolveWithin(t *testing.T) {
	root := evalRoot(t)
	writeTree(t, root, map[string]string{"docs/a.md": "a"})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"relative file", "docs/a.md", filepath.Join(root, "docs", "a.md")},
		{"dot", ".", root},
		{"empty", "", root},
		{"missing file", "docs/missing.md", filepath.Join(root, "docs", "missing.md")},
		{"missing dirs", "x/y/z.txt", filepath.Join(root, "x", "y", "z.txt")},
		{"inner dotdot", "docs/../docs/a.md", filepath.Join(root, "docs", "a.md")},
		{"absolute inside", filepath.Join(root, "docs"), filepath.Join(root, "docs")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveWithin(root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWithin_Denied(t *testing.T) {
	root := evalRoot(t)
	outside := evalRoot(t)

	tests := []struct {
		name string
		path string
	}{
		{"parent", ".."},
		{"escape", "../etc/passwd"},
		{"deep escape", "docs/../../x"},
		{"absolute outside", outside},
		{"root prefix sibling", root + "-other/file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveWithin(root, tt.path)
			assert.ErrorIs(t, err, domain.ErrPathOutsideRoot)
		})
	}
}

func TestResolveWithin_SymlinkEscape(t *testing.T) {
	root := evalRoot(t)
	outside := evalRoot(t)
	writeTree(t, outside, map[string]string{"secret.txt": "s"})

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := resolveWithin(root, "link/secret.txt")
	assert.ErrorIs(t, err, domain.ErrPathOutsideRoot)

	_, err = resolveWithin(root, "link/not-there.txt")
	assert.ErrorIs(t, err, domain.ErrPathOutsideRoot, "missing tail under an escaping link")
}

func TestResolveWithin_SymlinkInside(t *testing.T) {
	root := evalRoot(t)
	writeTree(t, root, map[string]string{"real/a.txt": "a"})

	if err := os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got, err := resolveWithin(root, "alias/a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "real", "a.txt"), got)
}
