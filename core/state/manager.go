package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"subledger/core/types"
	"subledger/storage"
)

var (
	accountPrefix = []byte("account:")
	slotKey       = ethcrypto.Keccak256([]byte("ledger-slot"))
)

func accountKey(key types.Pubkey) []byte {
	buf := make([]byte, len(accountPrefix)+types.PubkeySize)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], key[:])
	return ethcrypto.Keccak256(buf)
}

// Manager reads and writes committed ledger state. All mutation goes through
// an Overlay so a transaction either lands completely or not at all.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Account returns the committed account stored at key. Addresses that were
// never written resolve to an empty system-owned account.
func (m *Manager) Account(key types.Pubkey) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadAccount(key)
}

func (m *Manager) loadAccount(key types.Pubkey) (*types.Account, error) {
	data, err := m.db.Get(accountKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("state: load account %s: %w", key, err)
	}
	acc := new(types.Account)
	if err := rlp.DecodeBytes(data, acc); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", key, err)
	}
	return acc, nil
}

// Slot returns the number of committed transactions.
func (m *Manager) Slot() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadSlot()
}

func (m *Manager) loadSlot() (uint64, error) {
	data, err := m.db.Get(slotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var slot uint64
	if err := rlp.DecodeBytes(data, &slot); err != nil {
		return 0, fmt.Errorf("state: decode slot: %w", err)
	}
	return slot, nil
}

// Begin opens a speculative view on top of the committed state.
func (m *Manager) Begin() *Overlay {
	return &Overlay{
		base:     m,
		accounts: make(map[types.Pubkey]*types.Account),
		dirty:    make(map[types.Pubkey]struct{}),
	}
}

// Overlay buffers account reads and writes for one transaction. It is not safe
// for concurrent use; the runtime serializes transactions.
type Overlay struct {
	base     *Manager
	accounts map[types.Pubkey]*types.Account
	dirty    map[types.Pubkey]struct{}
	slot     *uint64
	closed   bool
}

var errOverlayClosed = errors.New("state: overlay already committed or discarded")

// Account returns a copy of the account as seen by the transaction.
func (o *Overlay) Account(key types.Pubkey) (*types.Account, error) {
	if o.closed {
		return nil, errOverlayClosed
	}
	if acc, ok := o.accounts[key]; ok {
		return acc.Clone(), nil
	}
	acc, err := o.base.Account(key)
	if err != nil {
		return nil, err
	}
	o.accounts[key] = acc
	return acc.Clone(), nil
}

// PutAccount stages an account write.
func (o *Overlay) PutAccount(key types.Pubkey, acc *types.Account) error {
	if o.closed {
		return errOverlayClosed
	}
	if acc == nil {
		acc = &types.Account{}
	}
	o.accounts[key] = acc.Clone()
	o.dirty[key] = struct{}{}
	return nil
}

// SetSlot stages the slot counter.
func (o *Overlay) SetSlot(slot uint64) {
	o.slot = &slot
}

// Dirty returns the staged account keys in a deterministic order.
func (o *Overlay) Dirty() []types.Pubkey {
	keys := make([]types.Pubkey, 0, len(o.dirty))
	for key := range o.dirty {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys
}

// Commit writes every staged change in a single storage batch. Accounts left
// with no lamports and no data are pruned.
func (o *Overlay) Commit() error {
	if o.closed {
		return errOverlayClosed
	}
	o.closed = true
	batch := o.base.db.NewBatch()
	for _, key := range o.Dirty() {
		acc := o.accounts[key]
		if acc.Lamports == 0 && acc.IsUninitialized() {
			batch.Delete(accountKey(key))
			continue
		}
		encoded, err := rlp.EncodeToBytes(acc)
		if err != nil {
			return fmt.Errorf("state: encode account %s: %w", key, err)
		}
		batch.Put(accountKey(key), encoded)
	}
	if o.slot != nil {
		encoded, err := rlp.EncodeToBytes(*o.slot)
		if err != nil {
			return err
		}
		batch.Put(slotKey, encoded)
	}
	if batch.Len() == 0 {
		return nil
	}
	o.base.mu.Lock()
	defer o.base.mu.Unlock()
	return batch.Write()
}

// Discard drops all staged changes.
func (o *Overlay) Discard() {
	o.closed = true
	o.accounts = nil
	o.dirty = nil
	o.slot = nil
}
