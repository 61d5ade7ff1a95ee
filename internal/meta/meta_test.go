package meta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshot-indexer-sol/internal/types"
)

var (
	keyA = types.PubkeyFromBase58("Config1111111111111111111111111111111111111")
	keyB = types.PubkeyFromBase58("Vote111111111111111111111111111111111111111")
	keyC = types.PubkeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// 排序按 base58 编码字典序，与序列化输出一致
func TestSortValidatorMetas(t *testing.T) {
	metas := []ValidatorMeta{
		{IdentityKey: keyC},
		{IdentityKey: keyA},
		{IdentityKey: keyB},
	}
	SortValidatorMetas(metas)

	for i := 1; i < len(metas); i++ {
		assert.Less(t, metas[i-1].IdentityKey.String(), metas[i].IdentityKey.String())
	}
}

// 同一 identity 运行多个 vote account 时按 vote account key 二级排序
func TestSortValidatorMetasSameIdentity(t *testing.T) {
	metas := []ValidatorMeta{
		{IdentityKey: keyA, VoteAccountKey: keyC},
		{IdentityKey: keyA, VoteAccountKey: keyB},
		{IdentityKey: keyA, VoteAccountKey: keyA},
	}
	SortValidatorMetas(metas)

	assert.Equal(t, keyA, metas[0].VoteAccountKey)
	assert.Equal(t, keyB, metas[1].VoteAccountKey)
	assert.Equal(t, keyC, metas[2].VoteAccountKey)
}

func TestSortStakeMetas(t *testing.T) {
	metas := []StakeMeta{
		{StakeAccountKey: keyB},
		{StakeAccountKey: keyA},
	}
	SortStakeMetas(metas)
	assert.Less(t, metas[0].StakeAccountKey.String(), metas[1].StakeAccountKey.String())
}

// JSON 字段：lamports 为数字，key 为 base58 字符串，可选字段缺省为 null
func TestValidatorMetaJSON(t *testing.T) {
	vm := ValidatorMeta{
		IdentityKey:            keyA,
		VoteAccountKey:         keyB,
		Commission:             5,
		ActivatedStakeLamports: 3000,
	}
	data, err := json.Marshal(vm)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, keyA.String(), decoded["identity_key"])
	assert.Equal(t, float64(3000), decoded["activated_stake_lamports"])
	assert.Nil(t, decoded["previous_epoch_credits"])
	assert.Nil(t, decoded["mev_commission_bps"])
	assert.Nil(t, decoded["priority_fee_commission_bps"])
	assert.Nil(t, decoded["priority_fee_lamports"])
	assert.Equal(t, false, decoded["delinquent"])
}

func TestStakeMetaJSON(t *testing.T) {
	sm := StakeMeta{
		StakeAccountKey:   keyA,
		VoterKey:          keyB,
		DelegatedLamports: 1000,
		EffectiveLamports: 900,
		BalanceLamports:   1002282880,
		StakeAuthority:    keyC,
		WithdrawAuthority: keyC,
	}
	data, err := json.Marshal(sm)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, keyA.String(), decoded["stake_account_key"])
	assert.Equal(t, float64(1000), decoded["delegated_lamports"])
	assert.Equal(t, keyC.String(), decoded["stake_authority"])
	assert.Equal(t, keyC.String(), decoded["withdraw_authority"])
}
