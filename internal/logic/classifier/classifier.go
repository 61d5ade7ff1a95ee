package classifier

import (
	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/types"
)

// Class 是账户分类的封闭标签集，每个标签对应一个解码器。
type Class uint8

const (
	ClassIgnored Class = iota
	ClassVote
	ClassStake
	ClassToken
	ClassTipDistribution
	ClassPriorityFeeDistribution
)

func (c Class) String() string {
	switch c {
	case ClassVote:
		return "vote"
	case ClassStake:
		return "stake"
	case ClassToken:
		return "token"
	case ClassTipDistribution:
		return "tip_distribution"
	case ClassPriorityFeeDistribution:
		return "priority_fee_distribution"
	default:
		return "ignored"
	}
}

// Classify 按 owner program id 精确匹配分类，O(1) 且无额外分配。
// 未知 owner 一律 Ignored。
func Classify(owner types.Pubkey) Class {
	switch owner {
	case consts.VoteProgram:
		return ClassVote
	case consts.StakeProgram:
		return ClassStake
	case consts.TokenProgram, consts.TokenProgram2022:
		return ClassToken
	case consts.JitoTipDistributionProgram:
		return ClassTipDistribution
	case consts.JitoPriorityFeeProgram:
		return ClassPriorityFeeDistribution
	default:
		return ClassIgnored
	}
}
