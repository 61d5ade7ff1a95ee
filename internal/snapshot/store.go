package snapshot

import (
	"errors"

	"snapshot-indexer-sol/internal/types"
)

var (
	// ErrSnapshotUnavailable 快照目录在给定 slot 不可用（致命错误）
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")

	// ErrCorruptRecord 单条账户记录不可读（可恢复：跳过并计数）
	ErrCorruptRecord = errors.New("corrupt account record")
)

// RawAccount 表示快照中的一条原始账户记录。
// 仅在流式处理期间存在，解码后即丢弃，不保留原始字节。
type RawAccount struct {
	Pubkey   types.Pubkey
	Owner    types.Pubkey
	Lamports uint64
	Data     []byte
}

// AccountIterator 对已打开快照的全量账户集做惰性单遍遍历。
// Next 返回 io.EOF 表示流结束；返回 ErrCorruptRecord 表示当前记录不可读，
// 调用方应计数后继续。迭代器不可重置。
type AccountIterator interface {
	Next() (RawAccount, error)
}

// AccountStore 是外部账户库（accounts-db）在本系统中的唯一边界。
// 上游的版本化二进制读取器被隔离在该契约之后。
type AccountStore interface {
	// Iterator 返回新的全量遍历迭代器
	Iterator() AccountIterator

	// Lookup 按地址读取单个账户（用于 sysvar 等点查）
	Lookup(pubkey types.Pubkey) (*RawAccount, bool, error)

	// Slot 返回快照对应的 slot
	Slot() uint64
}
