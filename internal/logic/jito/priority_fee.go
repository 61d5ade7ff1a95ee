package jito

import (
	"bytes"
	"fmt"

	"github.com/near/borsh-go"

	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/types"
)

// PriorityFeeDistribution 账户是 TipDistribution 的同构兄弟：
// TipRouter 升级后 priority fee 也按 epoch 分发给 staker，
// 每 epoch 每个 validator 一个账户，多出一个累计转入的 lamports 字段。

// priorityFeeDiscriminator 是 PriorityFeeDistributionAccount 的 anchor discriminator
var priorityFeeDiscriminator = []byte{163, 183, 254, 12, 121, 137, 235, 27}

type priorityFeeDistributionAccount struct {
	ValidatorVoteAccount      [32]uint8
	MerkleRootUploadAuthority [32]uint8
	MerkleRoot                *merkleRoot
	EpochCreatedAt            uint64
	ValidatorCommissionBps    uint16
	ExpiresAt                 uint64
	TotalLamportsTransferred  uint64
	Bump                      uint8
}

// PriorityFeeCommission 表示某 validator 在某 epoch 的优先费佣金与累计转入
type PriorityFeeCommission struct {
	VoteAccount    types.Pubkey
	EpochCreatedAt uint64
	CommissionBps  uint16
	TotalLamports  uint64
}

// IsPriorityFeeDistributionAccount 按 discriminator 判断记录类型。
// 同一 program 还拥有 config/claim-status 等账户，需要先过滤。
func IsPriorityFeeDistributionAccount(data []byte) bool {
	return len(data) > 8 && bytes.Equal(data[:8], priorityFeeDiscriminator)
}

// DecodePriorityFee 解析一个 PriorityFeeDistribution 账户
func DecodePriorityFee(acc snapshot.RawAccount) (*PriorityFeeCommission, error) {
	if !IsPriorityFeeDistributionAccount(acc.Data) {
		return nil, fmt.Errorf("%w: account %s is not a priority fee distribution account",
			snapshot.ErrCorruptRecord, acc.Pubkey)
	}
	var parsed priorityFeeDistributionAccount
	if err := borsh.Deserialize(&parsed, acc.Data[8:]); err != nil {
		return nil, fmt.Errorf("%w: priority fee distribution account %s: %v",
			snapshot.ErrCorruptRecord, acc.Pubkey, err)
	}
	return &PriorityFeeCommission{
		VoteAccount:    types.Pubkey(parsed.ValidatorVoteAccount),
		EpochCreatedAt: parsed.EpochCreatedAt,
		CommissionBps:  parsed.ValidatorCommissionBps,
		TotalLamports:  parsed.TotalLamportsTransferred,
	}, nil
}
