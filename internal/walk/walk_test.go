package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilesReturnsSingleFileUnchanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dcm")
	assert.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	got, err := Files(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{path}, got)
}

func TestFilesWalksDirectoryRecursively(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.dcm"), []byte("x"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.dcm"), []byte("x"), 0o644))

	got, err := Files(dir)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestExpandConcatenatesMixedFileAndDirArgs(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	solo := filepath.Join(dir, "solo.dcm")
	assert.NoError(t, os.WriteFile(solo, []byte("x"), 0o644))

	sub := filepath.Join(dir, "sub")
	assert.NoError(t, os.MkdirAll(sub, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(sub, "a.dcm"), []byte("x"), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(sub, "b.dcm"), []byte("x"), 0o644))

	got, err := Expand([]string{solo, sub})
	assert.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFilesMissingPathErrors(t *testing.T) {
	t.Parallel()
	_, err := Files(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
