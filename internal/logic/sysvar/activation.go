package sysvar

import (
	"snapshot-indexer-sol/internal/logic/stakedec"
)

// StakeSplit 是一笔委托在当前 epoch 的三段拆分（lamports 为整数，不发生舍入）
type StakeSplit struct {
	Effective    uint64
	Activating   uint64
	Deactivating uint64
}

// Split 计算委托 d 在 es.Epoch 的 effective/activating/deactivating 拆分。
// 算法与链上运行时一致：从 activation/deactivation epoch 起沿 stake history
// 逐 epoch 推进，每个 epoch 的增减量受全网激活/停用速率限制。
//   - activation == 当前 epoch：全部 activating
//   - 无对应 history 条目（已完全过渡）：全部 effective
//   - 已过 deactivation 且完成冷却：三段全零
func (es *EpochState) Split(d *stakedec.Delegation) StakeSplit {
	// 停用从 deactivation epoch 时点的 effective 开始冷却
	target := es.Epoch
	if d.DeactivationEpoch < target {
		target = d.DeactivationEpoch
	}
	effective, activating := es.stakeAndActivating(d, target)

	switch {
	case es.Epoch < d.DeactivationEpoch:
		return StakeSplit{Effective: effective, Activating: activating}
	case es.Epoch == d.DeactivationEpoch:
		return StakeSplit{Effective: effective, Deactivating: effective}
	}

	// 已过 deactivation epoch：沿 history 计算剩余未冷却部分
	entry, ok := es.History.Get(d.DeactivationEpoch)
	if !ok {
		// 无历史条目说明冷却早已完成
		return StakeSplit{}
	}

	current := effective
	prevEpoch := d.DeactivationEpoch
	prevCluster := entry
	for {
		epoch := prevEpoch + 1
		if prevCluster.Deactivating == 0 {
			break
		}

		// 本账户在全网停用队列中的占比，乘以该 epoch 允许停用的总量
		weight := float64(current) / float64(prevCluster.Deactivating)
		rate := es.Rate.WarmupCooldownRate(epoch)
		newlyNotEffective := uint64(weight * float64(prevCluster.Effective) * rate)
		if newlyNotEffective < 1 {
			newlyNotEffective = 1
		}

		if newlyNotEffective >= current {
			current = 0
			break
		}
		current -= newlyNotEffective
		if epoch >= es.Epoch {
			break
		}
		next, ok := es.History.Get(epoch)
		if !ok {
			break
		}
		prevEpoch = epoch
		prevCluster = next
	}

	return StakeSplit{Effective: current, Deactivating: current}
}

// stakeAndActivating 返回 target epoch 时点的 (effective, activating)，不考虑停用
func (es *EpochState) stakeAndActivating(d *stakedec.Delegation, target uint64) (uint64, uint64) {
	switch {
	case d.ActivationEpoch == stakedec.EpochMax:
		// bootstrap 质押：创世即完全生效
		return d.Stake, 0
	case d.ActivationEpoch == d.DeactivationEpoch:
		return 0, 0
	case target == d.ActivationEpoch:
		return 0, d.Stake
	case target < d.ActivationEpoch:
		return 0, 0
	}

	entry, ok := es.History.Get(d.ActivationEpoch)
	if !ok {
		// 无历史条目说明 warm-up 早已完成
		return d.Stake, 0
	}

	current := uint64(0)
	prevEpoch := d.ActivationEpoch
	prevCluster := entry
	for {
		epoch := prevEpoch + 1
		if prevCluster.Activating == 0 {
			break
		}

		weight := float64(d.Stake-current) / float64(prevCluster.Activating)
		rate := es.Rate.WarmupCooldownRate(epoch)
		newlyEffective := uint64(weight * float64(prevCluster.Effective) * rate)
		if newlyEffective < 1 {
			newlyEffective = 1
		}

		current += newlyEffective
		if current >= d.Stake {
			current = d.Stake
			break
		}
		if epoch >= target {
			break
		}
		next, ok := es.History.Get(epoch)
		if !ok {
			break
		}
		prevEpoch = epoch
		prevCluster = next
	}

	return current, d.Stake - current
}
