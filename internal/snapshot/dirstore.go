package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/pkg/logger"
)

// DirStore 读取已解包快照目录下的 append-vec 文件（accounts/<slot>.<id>）。
// 同一地址可能出现在多个 slot 的文件中，遍历时按 slot 降序取最新版本，
// 同一 slot 内按 write_version 取最大者。
type DirStore struct {
	slot      uint64
	slots     []uint64            // 降序
	slotFiles map[uint64][]string // slot -> 文件路径（按 id 升序）
}

// Open 打开 ledgerPath 下的快照账户库。
// slot 为 0 时使用目录中出现的最高 slot；否则只纳入 <= slot 的文件。
func Open(ledgerPath string, slot uint64) (*DirStore, error) {
	accountsDir := filepath.Join(ledgerPath, "accounts")
	if _, err := os.Stat(accountsDir); err != nil {
		// 允许直接指向 accounts 目录本身
		accountsDir = ledgerPath
	}

	entries, err := os.ReadDir(accountsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read %s: %v", ErrSnapshotUnavailable, accountsDir, err)
	}

	slotFiles := make(map[uint64][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileSlot, ok := parseAppendVecName(e.Name())
		if !ok {
			continue
		}
		if slot > 0 && fileSlot > slot {
			continue
		}
		slotFiles[fileSlot] = append(slotFiles[fileSlot], filepath.Join(accountsDir, e.Name()))
	}
	if len(slotFiles) == 0 {
		return nil, fmt.Errorf("%w: no append-vec files in %s at slot %d", ErrSnapshotUnavailable, accountsDir, slot)
	}

	slots := make([]uint64, 0, len(slotFiles))
	for s := range slotFiles {
		sort.Strings(slotFiles[s])
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] > slots[j] })

	highest := slots[0]
	if slot == 0 {
		slot = highest
	}
	logger.Infof("snapshot opened: dir=%s, slot=%d, append-vec slots=%d", accountsDir, slot, len(slots))
	return &DirStore{slot: slot, slots: slots, slotFiles: slotFiles}, nil
}

func (s *DirStore) Slot() uint64 {
	return s.slot
}

func (s *DirStore) Iterator() AccountIterator {
	return &dirIterator{
		store: s,
		seen:  make(map[types.Pubkey]struct{}),
	}
}

// Lookup 按地址点查单个账户（独立于 Iterator 的一次性扫描）。
func (s *DirStore) Lookup(pubkey types.Pubkey) (*RawAccount, bool, error) {
	it := s.Iterator()
	for {
		acc, err := it.Next()
		if err == io.EOF {
			return nil, false, nil
		}
		if err != nil {
			if IsCorruptRecord(err) {
				continue
			}
			return nil, false, err
		}
		if acc.Pubkey == pubkey {
			return &acc, true, nil
		}
	}
}

// parseAppendVecName 解析 "<slot>.<id>" 形式的文件名
func parseAppendVecName(name string) (uint64, bool) {
	dot := strings.IndexByte(name, '.')
	if dot <= 0 {
		return 0, false
	}
	slot, err := strconv.ParseUint(name[:dot], 10, 64)
	if err != nil {
		return 0, false
	}
	if _, err = strconv.ParseUint(name[dot+1:], 10, 64); err != nil {
		return 0, false
	}
	return slot, true
}

// dirIterator 按 slot 降序逐组读取，组内去重后排队输出。
// seen 集合保证全局每个地址只输出最新版本。
type dirIterator struct {
	store    *DirStore
	seen     map[types.Pubkey]struct{}
	slotIdx  int
	queue    []RawAccount
	queueIdx int
	pending  []error // 当前 slot 组内遇到的可恢复错误，逐条上抛
}

func (it *dirIterator) Next() (RawAccount, error) {
	for {
		if len(it.pending) > 0 {
			err := it.pending[0]
			it.pending = it.pending[1:]
			return RawAccount{}, err
		}
		if it.queueIdx < len(it.queue) {
			acc := it.queue[it.queueIdx]
			it.queueIdx++
			return acc, nil
		}
		if it.slotIdx >= len(it.store.slots) {
			return RawAccount{}, io.EOF
		}
		it.loadSlotGroup(it.store.slots[it.slotIdx])
		it.slotIdx++
	}
}

// loadSlotGroup 读取一个 slot 的全部 append-vec，组内按 write_version 取最大，
// 并跳过更高 slot 已出现过的地址。
func (it *dirIterator) loadSlotGroup(slot uint64) {
	best := make(map[types.Pubkey]storedEntry)
	for _, path := range it.store.slotFiles[slot] {
		buf, err := os.ReadFile(path)
		if err != nil {
			it.pending = append(it.pending, fmt.Errorf("%w: read %s: %v", ErrCorruptRecord, path, err))
			continue
		}
		offset := 0
		for {
			entry, next, ok, err := parseAppendVecEntry(buf, offset)
			if err != nil {
				it.pending = append(it.pending, err)
				break // 文件剩余部分无法定位下一条目
			}
			if !ok {
				break
			}
			offset = next
			if _, dup := it.seen[entry.account.Pubkey]; dup {
				continue
			}
			if prev, exists := best[entry.account.Pubkey]; !exists || entry.writeVersion > prev.writeVersion {
				best[entry.account.Pubkey] = entry
			}
		}
	}

	it.queue = it.queue[:0]
	it.queueIdx = 0
	for pubkey, entry := range best {
		it.seen[pubkey] = struct{}{}
		it.queue = append(it.queue, entry.account)
	}
}

// IsCorruptRecord 判断 err 是否为可恢复的单条记录错误
func IsCorruptRecord(err error) bool {
	return errors.Is(err, ErrCorruptRecord)
}
