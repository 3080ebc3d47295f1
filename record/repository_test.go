package record

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/kjk/dumpbuf/filedb"
	"github.com/kjk/dumpbuf/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Output = io.Discard
	os.Exit(m.Run())
}

// both implementations must behave the same, so every test runs on both
func forEachRepo(t *testing.T, fn func(t *testing.T, repo Repository)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryRepository())
	})
	t.Run("file", func(t *testing.T) {
		db, err := filedb.Open(filepath.Join(t.TempDir(), "db.txt"))
		require.NoError(t, err)
		defer db.Close()
		fn(t, NewFileRepository(db))
	})
}

func TestAddGet(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository) {
		require.NoError(t, repo.Add(New("test_key", "test_val")))
		got, err := repo.Get("test_key")
		require.NoError(t, err)
		assert.Equal(t, New("test_key", "test_val"), got)
	})
}

func TestAddDuplicate(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository) {
		require.NoError(t, repo.Add(New("k", "v1")))
		assert.ErrorIs(t, repo.Add(New("k", "v2")), ErrDuplicateKey)
		got, err := repo.Get("k")
		require.NoError(t, err)
		assert.Equal(t, "v1", got.Value)
	})
}

func TestMissingKey(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository) {
		require.NoError(t, repo.Add(New("a", "1")))
		before, err := repo.All()
		require.NoError(t, err)

		_, err = repo.Get("nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Remove("nope"), ErrNotFound)

		after, err := repo.All()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestAllAndClear(t *testing.T) {
	forEachRepo(t, func(t *testing.T, repo Repository) {
		require.NoError(t, repo.Clear())
		require.NoError(t, repo.Add(New("b", "2")))
		require.NoError(t, repo.Add(New("a", "1")))
		all, err := repo.All()
		require.NoError(t, err)
		assert.Equal(t, []Record{New("a", "1"), New("b", "2")}, all)
		assert.Equal(t, []string{"a", "b"}, Keys(all))

		require.NoError(t, repo.Remove("a"))
		require.NoError(t, repo.Clear())
		all, err = repo.All()
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestRecordString(t *testing.T) {
	assert.Equal(t, "{ key: shell, value: echo hi }", New("shell", "echo hi").String())
}
