package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, relPath string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+relPath), 0o644))
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html")
	writeFile(t, root, "assets/app.js")
	writeFile(t, root, "assets/css/style.css")
	writeFile(t, root, "deep/a/b/c/d.txt")

	files, err := ListFiles(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"index.html",
		"assets/app.js",
		"assets/css/style.css",
		"deep/a/b/c/d.txt",
	}, files)
}

func TestListFiles_EmptyDir(t *testing.T) {
	files, err := ListFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListFiles_SkipsDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "nested"), 0o755))
	writeFile(t, root, "only.txt")

	files, err := ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"only.txt"}, files)
}

func TestListFiles_MissingRoot(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "walking directory")
}
