package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"snapshot-indexer-sol/internal/types"
)

// TokenMetadata 是 Metaplex metadata 账户解码后的关键字段
type TokenMetadata struct {
	Mint   types.Pubkey `json:"mint"`
	Name   string       `json:"name"`
	Symbol string       `json:"symbol"`
	URI    string       `json:"uri"`
}

// MetadataCache 是按 mint 维护的 token 元数据 LRU 缓存。
// 同一次运行内同一个 mint 只解码一次 metadata PDA。
type MetadataCache struct {
	inner *lru.Cache[types.Pubkey, *TokenMetadata]
}

func NewMetadataCache(size int) (*MetadataCache, error) {
	inner, err := lru.New[types.Pubkey, *TokenMetadata](size)
	if err != nil {
		return nil, err
	}
	return &MetadataCache{inner: inner}, nil
}

func (c *MetadataCache) Get(mint types.Pubkey) (*TokenMetadata, bool) {
	return c.inner.Get(mint)
}

func (c *MetadataCache) Put(mint types.Pubkey, md *TokenMetadata) {
	c.inner.Add(mint, md)
}

func (c *MetadataCache) Len() int {
	return c.inner.Len()
}
