package snapshot

import (
	"io"
	"sort"

	"snapshot-indexer-sol/internal/types"
)

// MemStore 是 AccountStore 的内存实现，用于测试与嵌入场景。
// 遍历顺序按地址 base58 升序，保证可重复。
type MemStore struct {
	slot     uint64
	accounts map[types.Pubkey]RawAccount
}

func NewMemStore(slot uint64) *MemStore {
	return &MemStore{
		slot:     slot,
		accounts: make(map[types.Pubkey]RawAccount),
	}
}

func (m *MemStore) SetAccount(acc RawAccount) {
	m.accounts[acc.Pubkey] = acc
}

func (m *MemStore) Slot() uint64 {
	return m.slot
}

func (m *MemStore) Lookup(pubkey types.Pubkey) (*RawAccount, bool, error) {
	acc, ok := m.accounts[pubkey]
	if !ok {
		return nil, false, nil
	}
	return &acc, true, nil
}

func (m *MemStore) Iterator() AccountIterator {
	keys := make([]types.Pubkey, 0, len(m.accounts))
	for k := range m.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return &memIterator{store: m, keys: keys}
}

type memIterator struct {
	store *MemStore
	keys  []types.Pubkey
	idx   int
}

func (it *memIterator) Next() (RawAccount, error) {
	if it.idx >= len(it.keys) {
		return RawAccount{}, io.EOF
	}
	acc := it.store.accounts[it.keys[it.idx]]
	it.idx++
	return acc, nil
}
