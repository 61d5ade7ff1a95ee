package sysvar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/logic/stakedec"
	"snapshot-indexer-sol/internal/types"
)

var splitVoter = types.PubkeyFromBase58("Vote111111111111111111111111111111111111111")

func testEpochState(epoch uint64, history StakeHistory) *EpochState {
	return &EpochState{
		Epoch:   epoch,
		History: history,
		Rate:    FixedRate(consts.DefaultWarmupCooldownRate),
	}
}

// bootstrap 哨兵：创世即完全生效
func TestSplitBootstrap(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 7000, ActivationEpoch: stakedec.EpochMax, DeactivationEpoch: stakedec.EpochMax}
	assert.Equal(t, StakeSplit{Effective: 7000}, es.Split(d))
}

// 本 epoch 刚激活：全部 activating
func TestSplitJustActivated(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 5000, ActivationEpoch: 500, DeactivationEpoch: stakedec.EpochMax}
	assert.Equal(t, StakeSplit{Activating: 5000}, es.Split(d))
}

// 激活 epoch 无 history 条目：warm-up 早已完成，全部 effective
func TestSplitFullyWarmedUp(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 5000, ActivationEpoch: 490, DeactivationEpoch: stakedec.EpochMax}
	assert.Equal(t, StakeSplit{Effective: 5000}, es.Split(d))
}

// 同 epoch 激活又停用：三段全零
func TestSplitActivationEqualsDeactivation(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 5000, ActivationEpoch: 499, DeactivationEpoch: 499}
	assert.Equal(t, StakeSplit{}, es.Split(d))
}

// 本 epoch 发起停用：effective 同时整体进入 deactivating
func TestSplitJustDeactivated(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 5000, ActivationEpoch: 490, DeactivationEpoch: 500}
	assert.Equal(t, StakeSplit{Effective: 5000, Deactivating: 5000}, es.Split(d))
}

// 停用 epoch 无 history 条目：冷却早已完成
func TestSplitFullyCooledDown(t *testing.T) {
	es := testEpochState(500, StakeHistory{})
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 5000, ActivationEpoch: 480, DeactivationEpoch: 490}
	assert.Equal(t, StakeSplit{}, es.Split(d))
}

// 受速率限制的 warm-up：单 epoch 最多激活全网 effective * rate 的份额
func TestSplitRateLimitedWarmup(t *testing.T) {
	// 激活 epoch 499 时全网：effective 1_000_000，activating 队列只有本账户
	history := StakeHistory{
		499: {Effective: 1000000, Activating: 100000},
	}
	es := testEpochState(500, history)
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 100000, ActivationEpoch: 499, DeactivationEpoch: stakedec.EpochMax}

	split := es.Split(d)
	// weight = 1.0，newly = 1_000_000 * 0.09 = 90_000
	assert.Equal(t, uint64(90000), split.Effective)
	assert.Equal(t, uint64(10000), split.Activating)
	assert.Equal(t, uint64(0), split.Deactivating)

	// 不变量：三段都不超过委托总量
	assert.LessOrEqual(t, split.Effective+split.Activating, d.Stake)
}

// 受速率限制的 cool-down：按占比逐 epoch 递减
func TestSplitRateLimitedCooldown(t *testing.T) {
	// 激活 epoch 490 无条目（warm-up 早已完成），停用发生在 epoch 499
	history := StakeHistory{
		499: {Effective: 1000000, Deactivating: 100000},
	}
	es := testEpochState(500, history)
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 100000, ActivationEpoch: 490, DeactivationEpoch: 499}

	split := es.Split(d)
	// 停用时点 effective = 100_000，epoch 500 冷却 1_000_000 * 0.09 = 90_000
	assert.Equal(t, uint64(10000), split.Effective)
	assert.Equal(t, uint64(10000), split.Deactivating)
	assert.Equal(t, uint64(0), split.Activating)
}

// 速率下限：每 epoch 至少推进 1 lamport，保证过渡终止
func TestSplitMinimumProgress(t *testing.T) {
	history := StakeHistory{
		499: {Effective: 1, Activating: 1000000000},
	}
	es := testEpochState(500, history)
	d := &stakedec.Delegation{Voter: splitVoter, Stake: 1000, ActivationEpoch: 499, DeactivationEpoch: stakedec.EpochMax}

	split := es.Split(d)
	assert.Equal(t, uint64(1), split.Effective, "即使速率配额不足 1 lamport 也要有进展")
	assert.Equal(t, uint64(999), split.Activating)
}
