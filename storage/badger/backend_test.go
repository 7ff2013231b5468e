package badger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chatrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = OpenBackend("", false)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestBackend_Transactions(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	key := []byte("k")
	require.NoError(t, backend.Update(func(tx *badger.Txn) error {
		return tx.Set(key, []byte("v"))
	}))

	err = backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(key, []byte("discarded")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	var got string
	require.NoError(t, backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(key)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		got = string(val)
		return err
	}))
	assert.Equal(t, "v", got)

	require.NoError(t, backend.Close())
	assert.ErrorIs(t, backend.View(func(*badger.Txn) error { return nil }), storage.ErrStorageClosed)
	assert.ErrorIs(t, backend.Update(func(*badger.Txn) error { return nil }), storage.ErrStorageClosed)
}
