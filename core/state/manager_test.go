package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"subledger/core/types"
	"subledger/storage"
)

func TestOverlayCommitPersists(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	key := types.Pubkey{0x01}
	owner := types.Pubkey{0x02}

	overlay := manager.Begin()
	require.NoError(t, overlay.PutAccount(key, &types.Account{Lamports: 42, Owner: owner, Data: []byte{1, 2, 3}}))
	overlay.SetSlot(7)

	committed, err := manager.Account(key)
	require.NoError(t, err)
	require.Zero(t, committed.Lamports, "overlay writes must not leak before commit")

	require.NoError(t, overlay.Commit())

	committed, err = manager.Account(key)
	require.NoError(t, err)
	require.Equal(t, uint64(42), committed.Lamports)
	require.Equal(t, owner, committed.Owner)
	require.Equal(t, []byte{1, 2, 3}, committed.Data)

	slot, err := manager.Slot()
	require.NoError(t, err)
	require.Equal(t, uint64(7), slot)
}

func TestOverlayDiscardLeavesStateUntouched(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	key := types.Pubkey{0x03}

	seed := manager.Begin()
	require.NoError(t, seed.PutAccount(key, &types.Account{Lamports: 10}))
	require.NoError(t, seed.Commit())

	overlay := manager.Begin()
	acc, err := overlay.Account(key)
	require.NoError(t, err)
	acc.Lamports = 0
	require.NoError(t, overlay.PutAccount(key, acc))
	overlay.Discard()

	committed, err := manager.Account(key)
	require.NoError(t, err)
	require.Equal(t, uint64(10), committed.Lamports)

	_, err = overlay.Account(key)
	require.Error(t, err)
	require.Error(t, overlay.Commit())
}

func TestOverlayReadsOwnWritesAndCopies(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	key := types.Pubkey{0x04}
	overlay := manager.Begin()

	require.NoError(t, overlay.PutAccount(key, &types.Account{Lamports: 5, Data: []byte{9}}))
	acc, err := overlay.Account(key)
	require.NoError(t, err)
	require.Equal(t, uint64(5), acc.Lamports)

	acc.Data[0] = 0
	again, err := overlay.Account(key)
	require.NoError(t, err)
	require.Equal(t, []byte{9}, again.Data)
}

func TestEmptyAccountsArePruned(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	key := types.Pubkey{0x05}

	first := manager.Begin()
	require.NoError(t, first.PutAccount(key, &types.Account{Lamports: 1}))
	require.NoError(t, first.Commit())
	require.Equal(t, 1, db.Len())

	second := manager.Begin()
	require.NoError(t, second.PutAccount(key, &types.Account{}))
	require.NoError(t, second.Commit())
	require.Equal(t, 0, db.Len())
}

func TestStatePersistsAcrossLevelDBReopen(t *testing.T) {
	dir := t.TempDir()
	key := types.Pubkey{0x06}

	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	overlay := NewManager(db).Begin()
	require.NoError(t, overlay.PutAccount(key, &types.Account{Lamports: 99, Data: []byte("payload")}))
	require.NoError(t, overlay.Commit())
	require.NoError(t, db.Close())

	reopened, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()

	acc, err := NewManager(reopened).Account(key)
	require.NoError(t, err)
	require.Equal(t, uint64(99), acc.Lamports)
	require.Equal(t, []byte("payload"), acc.Data)
}
