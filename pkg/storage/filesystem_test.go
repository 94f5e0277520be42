package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("SCH001/exports/report.csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "SCH001/exports/report.csv", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	assert.Error(t, err)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(name))
}

func TestLocalStorageSaveStream(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("SCH001/photos/p1.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	file, err := store.Open(name)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, file.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.txt", "SCH001/../../etc/passwd", "", "/"} {
		_, saveErr := store.Save(name, []byte("x"))
		assert.Error(t, saveErr, name)

		_, openErr := store.Open(name)
		assert.Error(t, openErr, name)
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stale, err := store.Save("SCH001/old.csv", []byte("old"))
	require.NoError(t, err)
	fresh, err := store.Save("SCH001/new.csv", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, stale), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.FromSlash("SCH001/old.csv")}, deleted)

	_, err = store.Open(stale)
	assert.Error(t, err)
	file, err := store.Open(fresh)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
