package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelDBBatchPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)

	batch := db1.NewBatch()
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("a"))
	require.Equal(t, 3, batch.Len())
	require.NoError(t, batch.Write())
	require.NoError(t, db1.Close())

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	got, err := db2.Get([]byte("b"))
	require.NoError(t, err)
	require.Equal(t, []byte("2"), got)

	_, err = db2.Get([]byte("a"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemDBBatchIsDeferredUntilWrite(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("old")))

	batch := db.NewBatch()
	batch.Put([]byte("k"), []byte("new"))
	batch.Put([]byte("other"), []byte("x"))

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("old"), got)
	_, err = db.Get([]byte("other"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, batch.Write())
	got, err = db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), got)
	require.Equal(t, 2, db.Len())
}

func TestMemDBGetReturnsCopy(t *testing.T) {
	db := NewMemDB()
	value := []byte("value")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	got[1] = 'Y'

	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), again)
}
