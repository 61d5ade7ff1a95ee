package snapshot

import (
	"encoding/binary"
	"fmt"

	"snapshot-indexer-sol/internal/types"
)

// AppendVec 存储条目布局（accounts-db 固定格式）：
//
//	[0:8]     write_version (u64 LE)
//	[8:16]    data_len (u64 LE)
//	[16:48]   pubkey
//	[48:56]   lamports (u64 LE)
//	[56:64]   rent_epoch (u64 LE)
//	[64:96]   owner
//	[96]      executable (+7 字节对齐)
//	[104:136] hash
//	[136:]    data（按 8 字节对齐到下一条目）
const (
	storedMetaOverhead = 136
	appendVecAlign     = 8
)

// storedEntry 表示 append-vec 中解析出的一条记录
type storedEntry struct {
	writeVersion uint64
	account      RawAccount
}

// parseAppendVecEntry 从 buf[offset:] 解析一条记录。
// 返回下一条目偏移；ok=false 表示文件剩余部分是零填充（正常结束）。
func parseAppendVecEntry(buf []byte, offset int) (entry storedEntry, next int, ok bool, err error) {
	if offset+storedMetaOverhead > len(buf) {
		return storedEntry{}, 0, false, nil
	}
	header := buf[offset : offset+storedMetaOverhead]
	if isZeroHeader(header) {
		return storedEntry{}, 0, false, nil
	}

	dataLen := binary.LittleEndian.Uint64(header[8:16])
	dataStart := offset + storedMetaOverhead
	dataEnd := dataStart + int(dataLen)
	if dataLen > uint64(len(buf)) || dataEnd > len(buf) {
		return storedEntry{}, 0, false, fmt.Errorf("%w: data_len %d exceeds file at offset %d", ErrCorruptRecord, dataLen, offset)
	}

	pubkey, _ := types.PubkeyFromBytes(header[16:48])
	owner, _ := types.PubkeyFromBytes(header[64:96])

	var data []byte
	if dataLen > 0 {
		data = make([]byte, dataLen)
		copy(data, buf[dataStart:dataEnd])
	}

	entry = storedEntry{
		writeVersion: binary.LittleEndian.Uint64(header[0:8]),
		account: RawAccount{
			Pubkey:   pubkey,
			Owner:    owner,
			Lamports: binary.LittleEndian.Uint64(header[48:56]),
			Data:     data,
		},
	}
	return entry, alignUp(dataEnd, appendVecAlign), true, nil
}

func isZeroHeader(header []byte) bool {
	for _, b := range header {
		if b != 0 {
			return false
		}
	}
	return true
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}
