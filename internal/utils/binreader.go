package utils

import (
	"encoding/binary"
	"fmt"

	"snapshot-indexer-sol/internal/types"
)

// BinReader 顺序读取小端二进制布局，越界后所有读取返回零值并保留首个错误。
// 解码完成后统一检查 Err()，避免每个字段逐一判错。
type BinReader struct {
	buf []byte
	off int
	err error
}

func NewBinReader(buf []byte) *BinReader {
	return &BinReader{buf: buf}
}

func (r *BinReader) Err() error {
	return r.err
}

func (r *BinReader) Offset() int {
	return r.off
}

func (r *BinReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("read out of range: offset=%d, need=%d, len=%d", r.off, n, len(r.buf))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *BinReader) Skip(n int) {
	r.take(n)
}

func (r *BinReader) ReadU8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *BinReader) ReadU32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *BinReader) ReadU64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *BinReader) ReadPubkey() types.Pubkey {
	b := r.take(32)
	if b == nil {
		return types.Pubkey{}
	}
	var p types.Pubkey
	copy(p[:], b)
	return p
}

// ReadOptionU64 读取 bincode Option<u64>（1 字节 tag + 可选 8 字节值）
func (r *BinReader) ReadOptionU64() (uint64, bool) {
	switch r.ReadU8() {
	case 0:
		return 0, false
	case 1:
		return r.ReadU64(), true
	default:
		if r.err == nil {
			r.err = fmt.Errorf("invalid option tag at offset %d", r.off-1)
		}
		return 0, false
	}
}

// ReadVecLen 读取 bincode Vec 长度并做上限校验，防止损坏数据导致超额分配
func (r *BinReader) ReadVecLen(maxItems uint64) uint64 {
	n := r.ReadU64()
	if r.err == nil && n > maxItems {
		r.err = fmt.Errorf("vec length %d exceeds limit %d at offset %d", n, maxItems, r.off-8)
	}
	return n
}
