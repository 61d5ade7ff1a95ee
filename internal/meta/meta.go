package meta

import (
	"sort"

	"snapshot-indexer-sol/internal/logic/votedec"
	"snapshot-indexer-sol/internal/types"
)

// ValidatorMeta 是验证者（校验者）输出记录。
// lamports 一律为无符号 64 位整数，直接编码为 JSON number；地址为 base58 字符串。
type ValidatorMeta struct {
	IdentityKey              types.Pubkey          `json:"identity_key"`
	VoteAccountKey           types.Pubkey          `json:"vote_account_key"`
	Commission               uint8                 `json:"commission"`
	ActivatedStakeLamports   uint64                `json:"activated_stake_lamports"`
	EpochCredits             []votedec.EpochCredit `json:"epoch_credits"`
	Delinquent               bool                  `json:"delinquent"`
	PreviousEpochCredits     *uint64               `json:"previous_epoch_credits"`
	MevCommissionBps         *uint16               `json:"mev_commission_bps"`
	PriorityFeeCommissionBps *uint16               `json:"priority_fee_commission_bps"`
	PriorityFeeLamports      *uint64               `json:"priority_fee_lamports"`
}

// StakeMeta 是 stake 账户输出记录。
// VoterKey 指向同一次运行输出中的某个 ValidatorMeta.VoteAccountKey；
// 找不到对应验证者的孤儿委托保留在输出中（记 warning，不算错误）。
type StakeMeta struct {
	StakeAccountKey      types.Pubkey `json:"stake_account_key"`
	VoterKey             types.Pubkey `json:"voter_key"`
	DelegatedLamports    uint64       `json:"delegated_lamports"`
	EffectiveLamports    uint64       `json:"effective_lamports"`
	ActivatingLamports   uint64       `json:"activating_lamports"`
	DeactivatingLamports uint64       `json:"deactivating_lamports"`
	BalanceLamports      uint64       `json:"balance_lamports"`
	StakeAuthority       types.Pubkey `json:"stake_authority"`
	WithdrawAuthority    types.Pubkey `json:"withdraw_authority"`
}

// TokenBalanceMeta 是 token 持有人输出记录（按 owner 汇总）
type TokenBalanceMeta struct {
	Owner   types.Pubkey `json:"owner"`
	Balance uint64       `json:"balance"`
}

// SortValidatorMetas 按 identity key 的 base58 编码做字节字典序排序，
// 同一 identity 运行多个 vote account 时再按 vote account key 排序。
// 这是输出的唯一确定性保证，必须作为序列化前的最后一步。
func SortValidatorMetas(metas []ValidatorMeta) {
	sort.Slice(metas, func(i, j int) bool {
		a, b := metas[i].IdentityKey.String(), metas[j].IdentityKey.String()
		if a != b {
			return a < b
		}
		return metas[i].VoteAccountKey.String() < metas[j].VoteAccountKey.String()
	})
}

// SortStakeMetas 按 stake account key 的 base58 编码排序
func SortStakeMetas(metas []StakeMeta) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].StakeAccountKey.String() < metas[j].StakeAccountKey.String()
	})
}

// SortTokenBalanceMetas 按 owner key 的 base58 编码排序
func SortTokenBalanceMetas(metas []TokenBalanceMeta) {
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Owner.String() < metas[j].Owner.String()
	})
}
