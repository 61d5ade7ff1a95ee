package jito

import (
	"bytes"
	"fmt"

	"github.com/near/borsh-go"

	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/types"
)

// TipDistribution 账户由 Jito tip-distribution program 每 epoch 为每个
// validator 创建一个，validator_commission_bps 即该 validator 的 MEV 佣金。
// 账户为 anchor 布局：8 字节 discriminator + borsh 编码的结构体。

// tipDistributionDiscriminator 是 TipDistributionAccount 的 anchor discriminator
var tipDistributionDiscriminator = []byte{85, 64, 113, 198, 234, 94, 120, 123}

type merkleRoot struct {
	Root              [32]uint8
	MaxTotalClaim     uint64
	MaxNumNodes       uint64
	TotalFundsClaimed uint64
	NumNodesClaimed   uint64
}

type tipDistributionAccount struct {
	ValidatorVoteAccount      [32]uint8
	MerkleRootUploadAuthority [32]uint8
	MerkleRoot                *merkleRoot
	EpochCreatedAt            uint64
	ValidatorCommissionBps    uint16
	ExpiresAt                 uint64
	Bump                      uint8
}

// MevCommission 表示某 validator 在某 epoch 的 MEV 佣金
type MevCommission struct {
	VoteAccount    types.Pubkey
	EpochCreatedAt uint64
	CommissionBps  uint16
}

// IsTipDistributionAccount 按 discriminator 判断记录类型。
// 同一 program 还拥有 config/claim-status 等账户，需要先过滤。
func IsTipDistributionAccount(data []byte) bool {
	return len(data) > 8 && bytes.Equal(data[:8], tipDistributionDiscriminator)
}

// Decode 解析一个 TipDistribution 账户
func Decode(acc snapshot.RawAccount) (*MevCommission, error) {
	if !IsTipDistributionAccount(acc.Data) {
		return nil, fmt.Errorf("%w: account %s is not a tip distribution account",
			snapshot.ErrCorruptRecord, acc.Pubkey)
	}
	var parsed tipDistributionAccount
	if err := borsh.Deserialize(&parsed, acc.Data[8:]); err != nil {
		return nil, fmt.Errorf("%w: tip distribution account %s: %v",
			snapshot.ErrCorruptRecord, acc.Pubkey, err)
	}
	return &MevCommission{
		VoteAccount:    types.Pubkey(parsed.ValidatorVoteAccount),
		EpochCreatedAt: parsed.EpochCreatedAt,
		CommissionBps:  parsed.ValidatorCommissionBps,
	}, nil
}
