package consts

import "runtime"

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()

const (
	// DefaultVoteCreditsWindow 为 epoch_credits 保留的最近条目数（与链上保留策略一致）
	DefaultVoteCreditsWindow = 64

	// DefaultWarmupCooldownRate 每个 epoch 允许激活/停用的网络总质押比例
	DefaultWarmupCooldownRate = 0.09

	// LegacyWarmupCooldownRate 早期协议版本使用的激活速率
	LegacyWarmupCooldownRate = 0.25
)
