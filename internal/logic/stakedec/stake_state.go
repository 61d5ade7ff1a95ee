package stakedec

import (
	"fmt"
	"math"

	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/internal/utils"
)

// 链上 StakeState 布局（bincode，196/200 字节）：
// tag u32：0 Uninitialized，1 Initialized，2 Stake，3 RewardsPool。
// tag 1/2 携带 Meta{rent_exempt_reserve, authorized{staker, withdrawer}, lockup}，
// tag 2 追加 Stake{delegation, credits_observed}（V2 末尾多 1 字节 stake_flags）。

const (
	stakeTagUninitialized = 0
	stakeTagInitialized   = 1
	stakeTagStake         = 2
	stakeTagRewardsPool   = 3

	// EpochMax 是 activation/deactivation 的哨兵值：
	// activation == EpochMax 表示创世 bootstrap 质押（视为完全生效），
	// deactivation == EpochMax 表示尚未发起停用。
	EpochMax = math.MaxUint64
)

// Delegation 表示 stake 账户对某个 vote account 的委托
type Delegation struct {
	Voter             types.Pubkey
	Stake             uint64 // 委托的 lamports
	ActivationEpoch   uint64
	DeactivationEpoch uint64
}

// StakeAccountRecord 是一个 stake 账户解码后的记录。
// Delegation 为 nil 表示已初始化但未委托（合法的惰性记录）。
type StakeAccountRecord struct {
	StakeAccount      types.Pubkey
	Lamports          uint64
	StakeAuthority    types.Pubkey
	WithdrawAuthority types.Pubkey
	Delegation        *Delegation
}

// Decode 解析 stake account 数据。
// Uninitialized / RewardsPool 返回 (nil, nil)：忽略而非错误。
// 非哨兵 activation_epoch 大于 currentEpoch 在一致的快照中不可能出现，
// 视作损坏记录（调用方跳过并计数）。
func Decode(acc snapshot.RawAccount, currentEpoch uint64) (*StakeAccountRecord, error) {
	r := utils.NewBinReader(acc.Data)
	tag := r.ReadU32()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: stake account %s: %v", snapshot.ErrCorruptRecord, acc.Pubkey, r.Err())
	}

	switch tag {
	case stakeTagUninitialized, stakeTagRewardsPool:
		return nil, nil
	case stakeTagInitialized, stakeTagStake:
	default:
		return nil, fmt.Errorf("%w: stake account %s: unknown state tag %d", snapshot.ErrCorruptRecord, acc.Pubkey, tag)
	}

	record := &StakeAccountRecord{
		StakeAccount: acc.Pubkey,
		Lamports:     acc.Lamports,
	}

	r.Skip(8) // rent_exempt_reserve
	record.StakeAuthority = r.ReadPubkey()
	record.WithdrawAuthority = r.ReadPubkey()
	r.Skip(8 + 8 + 32) // lockup

	if tag == stakeTagStake {
		delegation := &Delegation{
			Voter:             r.ReadPubkey(),
			Stake:             r.ReadU64(),
			ActivationEpoch:   r.ReadU64(),
			DeactivationEpoch: r.ReadU64(),
		}
		r.Skip(8) // warmup_cooldown_rate（已废弃，速率由 RatePolicy 提供）
		r.Skip(8) // credits_observed

		if delegation.ActivationEpoch != EpochMax && delegation.ActivationEpoch > currentEpoch {
			return nil, fmt.Errorf("%w: stake account %s: activation epoch %d after current epoch %d",
				snapshot.ErrCorruptRecord, acc.Pubkey, delegation.ActivationEpoch, currentEpoch)
		}
		record.Delegation = delegation
	}

	if r.Err() != nil {
		return nil, fmt.Errorf("%w: stake account %s: %v", snapshot.ErrCorruptRecord, acc.Pubkey, r.Err())
	}
	return record, nil
}
