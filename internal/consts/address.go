package consts

import "snapshot-indexer-sol/internal/types"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	//  Programs
	SystemProgramStr    = "11111111111111111111111111111111"
	VoteProgramStr      = "Vote111111111111111111111111111111111111111"
	StakeProgramStr     = "Stake11111111111111111111111111111111111111"
	TokenProgramStr     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	TokenMetaProgramStr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	// Sysvars（运行时维护的系统账户）
	SysvarClockStr        = "SysvarC1ock11111111111111111111111111111111"
	SysvarStakeHistoryStr = "SysvarStakeHistory1111111111111111111111111"

	// Jito tip distribution program（每个 epoch 每个 validator 一个 TipDistribution 账户）
	JitoTipDistributionProgramStr = "4R3gSG8BpU4t19KYj8CfnbtRpnT8gtk4dvTHxVRwc2r7"

	// Jito priority fee distribution program（TipRouter 升级后按 epoch 分发优先费）
	JitoPriorityFeeProgramStr = "Priority6weCZ5HwDn29NxLFpb7TDp2iLZ6XKc5e8d3"
)

var (
	// Programs
	SystemProgram    = types.PubkeyFromBase58(SystemProgramStr)
	VoteProgram      = types.PubkeyFromBase58(VoteProgramStr)
	StakeProgram     = types.PubkeyFromBase58(StakeProgramStr)
	TokenProgram     = types.PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022 = types.PubkeyFromBase58(TokenProgram2022Str)
	TokenMetaProgram = types.PubkeyFromBase58(TokenMetaProgramStr)

	// Sysvars
	SysvarClock        = types.PubkeyFromBase58(SysvarClockStr)
	SysvarStakeHistory = types.PubkeyFromBase58(SysvarStakeHistoryStr)

	// Jito
	JitoTipDistributionProgram = types.PubkeyFromBase58(JitoTipDistributionProgramStr)
	JitoPriorityFeeProgram     = types.PubkeyFromBase58(JitoPriorityFeeProgramStr)
)
