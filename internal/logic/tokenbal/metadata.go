package tokenbal

import (
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"

	"snapshot-indexer-sol/internal/cache"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/pkg/logger"
)

// MetadataResolver 在同一份快照里解析 mint 的 Metaplex metadata。
// metadata 账户是以 mint 推导出的 PDA，直接点查即可，不依赖全量遍历。
// 解析失败只记 warning，token 余额输出不受影响。
type MetadataResolver struct {
	store snapshot.AccountStore
	cache *cache.MetadataCache
}

func NewMetadataResolver(store snapshot.AccountStore, c *cache.MetadataCache) *MetadataResolver {
	return &MetadataResolver{store: store, cache: c}
}

// Resolve 返回 mint 的 name/symbol/uri。
// metadata PDA 不存在或解码失败返回 (nil, err)，调用方计入 metadata_misses。
func (r *MetadataResolver) Resolve(mint types.Pubkey) (*cache.TokenMetadata, error) {
	if r.cache != nil {
		if md, ok := r.cache.Get(mint); ok {
			return md, nil
		}
	}

	pda, err := token_metadata.GetTokenMetaPubkey(common.PublicKeyFromBytes(mint.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("derive metadata pda: %w", err)
	}

	acc, found, err := r.store.Lookup(types.Pubkey(pda))
	if err != nil {
		return nil, fmt.Errorf("lookup metadata account: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("metadata account %s not in snapshot", pda.ToBase58())
	}

	parsed, err := token_metadata.MetadataDeserialize(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata account: %w", err)
	}

	// Metaplex 字符串字段以 \x00 填充到固定长度
	md := &cache.TokenMetadata{
		Mint:   mint,
		Name:   strings.TrimRight(parsed.Data.Name, "\x00"),
		Symbol: strings.TrimRight(parsed.Data.Symbol, "\x00"),
		URI:    strings.TrimRight(parsed.Data.Uri, "\x00"),
	}
	if r.cache != nil {
		r.cache.Put(mint, md)
	}
	logger.Debugf("token metadata resolved: mint=%s symbol=%s", mint, md.Symbol)
	return md, nil
}
