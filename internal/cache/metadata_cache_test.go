package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshot-indexer-sol/internal/types"
)

func TestMetadataCache(t *testing.T) {
	c, err := NewMetadataCache(2)
	require.NoError(t, err)

	mint := types.PubkeyFromBase58("So11111111111111111111111111111111111111112")
	_, ok := c.Get(mint)
	assert.False(t, ok)

	md := &TokenMetadata{Mint: mint, Name: "Wrapped SOL", Symbol: "wSOL"}
	c.Put(mint, md)

	got, ok := c.Get(mint)
	require.True(t, ok)
	assert.Equal(t, md, got)
	assert.Equal(t, 1, c.Len())
}

// 容量满后按 LRU 淘汰
func TestMetadataCacheEviction(t *testing.T) {
	c, err := NewMetadataCache(2)
	require.NoError(t, err)

	mints := []types.Pubkey{
		types.PubkeyFromBase58("Vote111111111111111111111111111111111111111"),
		types.PubkeyFromBase58("Stake11111111111111111111111111111111111111"),
		types.PubkeyFromBase58("Config1111111111111111111111111111111111111"),
	}
	for _, m := range mints {
		c.Put(m, &TokenMetadata{Mint: m})
	}

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(mints[0])
	assert.False(t, ok, "最早的条目应被淘汰")
}
