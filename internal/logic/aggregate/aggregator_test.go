package aggregate

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/logic/sysvar"
	"snapshot-indexer-sol/internal/meta"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/types"
)

const testEpoch = 500

var (
	voteKey1  = types.PubkeyFromBase58("Vote111111111111111111111111111111111111111")
	voteKey2  = types.PubkeyFromBase58("Config1111111111111111111111111111111111111")
	nodeKey1  = types.PubkeyFromBase58("Stake11111111111111111111111111111111111111")
	nodeKey2  = types.PubkeyFromBase58("ComputeBudget111111111111111111111111111111")
	stakeKey1 = types.PubkeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	stakeKey2 = types.PubkeyFromBase58("So11111111111111111111111111111111111111112")
	stakeKey3 = types.PubkeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

func leU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// voteData 构造 Current 版本的 VoteState 数据
func voteData(node types.Pubkey, commission uint8, latestCreditEpoch uint64) []byte {
	var buf bytes.Buffer
	w := func(v interface{}) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	w(uint32(2)) // Current
	buf.Write(node.Bytes())
	buf.Write(make([]byte, 32)) // withdrawer
	buf.WriteByte(commission)
	w(uint64(0))     // votes 为空
	buf.WriteByte(0) // root_slot = None
	w(uint64(0))     // authorized_voters 为空
	buf.Write(make([]byte, 32*48+8+1)) // prior_voters
	w(uint64(1))                       // epoch_credits: 1 条
	w(latestCreditEpoch)
	w(uint64(1000))
	w(uint64(900))
	buf.Write(make([]byte, 16)) // last_timestamp
	return buf.Bytes()
}

// stakeData 构造已委托的 StakeState 数据
func stakeData(voter types.Pubkey, stake, activation, deactivation uint64) []byte {
	var buf bytes.Buffer
	w := func(v interface{}) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	w(uint32(2)) // Stake
	w(uint64(2282880))
	buf.Write(make([]byte, 32+32))  // authorized
	buf.Write(make([]byte, 8+8+32)) // lockup
	buf.Write(voter.Bytes())
	w(stake)
	w(activation)
	w(deactivation)
	w(float64(0))
	w(uint64(0)) // credits_observed
	return buf.Bytes()
}

func clockData(epoch uint64) []byte {
	var buf bytes.Buffer
	buf.Write(leU64(123))
	buf.Write(leU64(0))
	buf.Write(leU64(epoch))
	buf.Write(leU64(epoch + 1))
	buf.Write(leU64(0))
	return buf.Bytes()
}

func testStore(t *testing.T) (*snapshot.MemStore, *sysvar.EpochState) {
	t.Helper()
	store := snapshot.NewMemStore(216000000)
	store.SetAccount(snapshot.RawAccount{Pubkey: consts.SysvarClock, Data: clockData(testEpoch)})
	store.SetAccount(snapshot.RawAccount{Pubkey: consts.SysvarStakeHistory, Data: leU64(0)})

	es, err := sysvar.Resolve(store, sysvar.FixedRate(consts.DefaultWarmupCooldownRate))
	require.NoError(t, err)
	return store, es
}

func bootstrapStake(pubkey, voter types.Pubkey, lamports uint64) snapshot.RawAccount {
	return snapshot.RawAccount{
		Pubkey: pubkey, Owner: consts.StakeProgram, Lamports: lamports + 2282880,
		Data: stakeData(voter, lamports, math.MaxUint64, math.MaxUint64),
	}
}

// 一个校验者 + 两笔完全生效的委托：activated 为两笔之和
func TestRunAggregatesStakeByVoter(t *testing.T) {
	store, es := testStore(t)
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey1, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 5, testEpoch-1)})
	store.SetAccount(bootstrapStake(stakeKey1, voteKey1, 1000))
	store.SetAccount(bootstrapStake(stakeKey2, voteKey1, 2000))

	result, err := Run(context.Background(), store, es, Options{Workers: 4})
	require.NoError(t, err)

	require.Len(t, result.Validators, 1)
	vm := result.Validators[0]
	assert.Equal(t, nodeKey1, vm.IdentityKey)
	assert.Equal(t, voteKey1, vm.VoteAccountKey)
	assert.Equal(t, uint8(5), vm.Commission)
	assert.Equal(t, uint64(3000), vm.ActivatedStakeLamports)

	require.Len(t, result.Stakes, 2)
	for _, sm := range result.Stakes {
		assert.Equal(t, voteKey1, sm.VoterKey)
		assert.Equal(t, sm.DelegatedLamports, sm.EffectiveLamports)
		assert.Equal(t, sm.DelegatedLamports+2282880, sm.BalanceLamports)
	}
	assert.Equal(t, uint64(2), result.Stats.StakeAccounts.Load())
	assert.Equal(t, uint64(1), result.Stats.VoteAccounts.Load())
}

// 激活中的委托不计入 activated，但保留在 stake 输出中
func TestRunActivatingStake(t *testing.T) {
	store, es := testStore(t)
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey1, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 0, testEpoch-1)})
	store.SetAccount(snapshot.RawAccount{
		Pubkey: stakeKey1, Owner: consts.StakeProgram, Lamports: 4000,
		Data: stakeData(voteKey1, 4000, testEpoch, math.MaxUint64),
	})

	result, err := Run(context.Background(), store, es, Options{Workers: 2})
	require.NoError(t, err)

	require.Len(t, result.Stakes, 1)
	sm := result.Stakes[0]
	assert.Equal(t, uint64(0), sm.EffectiveLamports)
	assert.Equal(t, uint64(4000), sm.ActivatingLamports)
	assert.Equal(t, uint64(0), result.Validators[0].ActivatedStakeLamports)
	assert.Equal(t, uint64(1), result.Stats.ZeroStakeValidators.Load())
}

// 孤儿委托：目标 vote account 不存在，保留输出并计 warning
func TestRunOrphanDelegation(t *testing.T) {
	store, es := testStore(t)
	store.SetAccount(bootstrapStake(stakeKey1, voteKey2, 1000))

	result, err := Run(context.Background(), store, es, Options{Workers: 2})
	require.NoError(t, err)

	assert.Empty(t, result.Validators)
	require.Len(t, result.Stakes, 1, "孤儿委托保留在输出中")
	assert.Equal(t, uint64(1), result.Stats.OrphanDelegations.Load())
}

// 不支持的 vote 布局与损坏的 stake：跳过计数，不影响其余记录
func TestRunRecoverableErrors(t *testing.T) {
	store, es := testStore(t)
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey1, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 0, testEpoch-1)})

	unsupported := voteData(nodeKey1, 0, testEpoch-1)
	binary.LittleEndian.PutUint32(unsupported[0:4], 0) // V0_23_5
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey2, Owner: consts.VoteProgram, Data: unsupported})

	store.SetAccount(snapshot.RawAccount{Pubkey: stakeKey1, Owner: consts.StakeProgram, Data: []byte{1, 2}})
	store.SetAccount(bootstrapStake(stakeKey2, voteKey1, 500))

	result, err := Run(context.Background(), store, es, Options{Workers: 2})
	require.NoError(t, err)

	require.Len(t, result.Validators, 1)
	require.Len(t, result.Stakes, 1)
	assert.Equal(t, uint64(1), result.Stats.UnsupportedVote.Load())
	assert.Equal(t, uint64(1), result.Stats.CorruptRecords.Load())
}

// 确定性：同一输入多次运行输出逐字节一致
func TestRunDeterministic(t *testing.T) {
	store, es := testStore(t)
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey1, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 5, testEpoch-1)})
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey2, Owner: consts.VoteProgram, Data: voteData(nodeKey2, 9, testEpoch-1)})
	store.SetAccount(bootstrapStake(stakeKey1, voteKey1, 1000))
	store.SetAccount(bootstrapStake(stakeKey2, voteKey2, 2000))
	store.SetAccount(bootstrapStake(stakeKey3, voteKey1, 3000))

	first, err := Run(context.Background(), store, es, Options{Workers: 8})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Run(context.Background(), store, es, Options{Workers: 3})
		require.NoError(t, err)
		assert.Equal(t, first.Validators, again.Validators)
		assert.Equal(t, first.Stakes, again.Stakes)
	}
}

// 同一 identity 运行多个 vote account：排序退化到 vote account key，
// 序列化输出仍然逐字节一致
func TestRunDeterministicSharedIdentity(t *testing.T) {
	store, es := testStore(t)
	for i := 0; i < 40; i++ {
		var voteKey types.Pubkey
		voteKey[0] = byte(i + 1)
		store.SetAccount(snapshot.RawAccount{Pubkey: voteKey, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 5, testEpoch-1)})
	}

	first, err := Run(context.Background(), store, es, Options{Workers: 8})
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first.Validators)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Run(context.Background(), store, es, Options{Workers: 8})
		require.NoError(t, err)
		againJSON, err := json.Marshal(again.Validators)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON), "identity key 相同的记录也要有稳定顺序")
	}

	for i := 1; i < len(first.Validators); i++ {
		assert.Less(t, first.Validators[i-1].VoteAccountKey.String(), first.Validators[i].VoteAccountKey.String())
	}
}

// jitoDistributionData 构造 anchor 布局的 distribution 账户数据
// （tip 与 priority fee 同构，后者多一个累计转入字段）
func jitoDistributionData(discriminator []byte, voter types.Pubkey, epoch uint64, bps uint16, totalLamports *uint64) []byte {
	var buf bytes.Buffer
	w := func(v interface{}) { _ = binary.Write(&buf, binary.LittleEndian, v) }

	buf.Write(discriminator)
	buf.Write(voter.Bytes())
	buf.Write(make([]byte, 32)) // merkle_root_upload_authority
	buf.WriteByte(0)            // merkle_root = None
	w(epoch)
	w(bps)
	w(epoch + 10) // expires_at
	if totalLamports != nil {
		w(*totalLamports)
	}
	buf.WriteByte(254) // bump
	return buf.Bytes()
}

// 当前 epoch 的 tip / priority fee distribution 账户写入对应佣金字段，
// 其他 epoch 的忽略
func TestRunAttachesJitoCommissions(t *testing.T) {
	tipDisc := []byte{85, 64, 113, 198, 234, 94, 120, 123}
	prioDisc := []byte{163, 183, 254, 12, 121, 137, 235, 27}
	totalLamports := uint64(777777)
	staleLamports := uint64(1)

	store, es := testStore(t)
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey1, Owner: consts.VoteProgram, Data: voteData(nodeKey1, 5, testEpoch-1)})
	store.SetAccount(snapshot.RawAccount{Pubkey: voteKey2, Owner: consts.VoteProgram, Data: voteData(nodeKey2, 9, testEpoch-1)})
	store.SetAccount(snapshot.RawAccount{
		Pubkey: stakeKey1, Owner: consts.JitoTipDistributionProgram,
		Data: jitoDistributionData(tipDisc, voteKey1, testEpoch, 800, nil),
	})
	store.SetAccount(snapshot.RawAccount{
		Pubkey: stakeKey2, Owner: consts.JitoPriorityFeeProgram,
		Data: jitoDistributionData(prioDisc, voteKey1, testEpoch, 300, &totalLamports),
	})
	// 上一个 epoch 的账户不采纳
	store.SetAccount(snapshot.RawAccount{
		Pubkey: stakeKey3, Owner: consts.JitoPriorityFeeProgram,
		Data: jitoDistributionData(prioDisc, voteKey2, testEpoch-1, 999, &staleLamports),
	})

	result, err := Run(context.Background(), store, es, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, result.Validators, 2)

	byVote := make(map[types.Pubkey]meta.ValidatorMeta)
	for _, vm := range result.Validators {
		byVote[vm.VoteAccountKey] = vm
	}

	vm1 := byVote[voteKey1]
	require.NotNil(t, vm1.MevCommissionBps)
	assert.Equal(t, uint16(800), *vm1.MevCommissionBps)
	require.NotNil(t, vm1.PriorityFeeCommissionBps)
	assert.Equal(t, uint16(300), *vm1.PriorityFeeCommissionBps)
	require.NotNil(t, vm1.PriorityFeeLamports)
	assert.Equal(t, totalLamports, *vm1.PriorityFeeLamports)

	vm2 := byVote[voteKey2]
	assert.Nil(t, vm2.MevCommissionBps)
	assert.Nil(t, vm2.PriorityFeeCommissionBps, "非当前 epoch 的账户不采纳")
	assert.Nil(t, vm2.PriorityFeeLamports)

	assert.Equal(t, uint64(1), result.Stats.TipDistributions.Load())
	assert.Equal(t, uint64(2), result.Stats.PriorityFeeDists.Load())
}

// 无关账户全部 Ignored，不产生任何输出
func TestRunIgnoresUnknownOwners(t *testing.T) {
	store, es := testStore(t)

	result, err := Run(context.Background(), store, es, Options{Workers: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Validators)
	assert.Empty(t, result.Stakes)
	// clock 与 stake-history 两个 sysvar 账户被扫到并忽略
	assert.Equal(t, uint64(2), result.Stats.Ignored.Load())
}
