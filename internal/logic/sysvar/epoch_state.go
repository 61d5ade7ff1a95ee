package sysvar

import (
	"errors"
	"fmt"

	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/utils"
	"snapshot-indexer-sol/pkg/logger"
)

// ErrMissingSysvar clock 或 stake-history sysvar 缺失（致命：下游无安全默认值）
var ErrMissingSysvar = errors.New("missing sysvar account")

// StakeHistoryEntry 表示某个 epoch 末的全网质押聚合
type StakeHistoryEntry struct {
	Effective    uint64
	Activating   uint64
	Deactivating uint64
}

// StakeHistory 按 epoch 索引的质押历史
type StakeHistory map[uint64]StakeHistoryEntry

func (h StakeHistory) Get(epoch uint64) (StakeHistoryEntry, bool) {
	e, ok := h[epoch]
	return e, ok
}

// RatePolicy 提供某个 epoch 的 warm-up/cool-down 速率。
// 具体数值依赖协议参数，实现可插拔（默认固定 9%）。
type RatePolicy interface {
	WarmupCooldownRate(epoch uint64) float64
}

// FixedRate 是固定速率的 RatePolicy
type FixedRate float64

func (r FixedRate) WarmupCooldownRate(uint64) float64 {
	return float64(r)
}

// EpochState 是一次运行的 epoch 上下文单例，构建后只读、可跨 worker 共享。
type EpochState struct {
	Epoch   uint64
	Slot    uint64
	History StakeHistory
	Rate    RatePolicy
}

// Resolve 从快照中读取 clock 与 stake-history sysvar，建立 EpochState。
// 任一缺失即返回 ErrMissingSysvar（整次运行终止，不写任何输出）。
func Resolve(store snapshot.AccountStore, rate RatePolicy) (*EpochState, error) {
	clockAcc, ok, err := store.Lookup(consts.SysvarClock)
	if err != nil {
		return nil, fmt.Errorf("lookup clock sysvar: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: clock (%s)", ErrMissingSysvar, consts.SysvarClockStr)
	}

	historyAcc, ok, err := store.Lookup(consts.SysvarStakeHistory)
	if err != nil {
		return nil, fmt.Errorf("lookup stake-history sysvar: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: stake history (%s)", ErrMissingSysvar, consts.SysvarStakeHistoryStr)
	}

	epoch, err := decodeClockEpoch(clockAcc.Data)
	if err != nil {
		return nil, err
	}
	history, err := decodeStakeHistory(historyAcc.Data)
	if err != nil {
		return nil, err
	}

	if rate == nil {
		rate = FixedRate(consts.DefaultWarmupCooldownRate)
	}
	logger.Infof("epoch state resolved: epoch=%d, slot=%d, stake history entries=%d",
		epoch, store.Slot(), len(history))
	return &EpochState{
		Epoch:   epoch,
		Slot:    store.Slot(),
		History: history,
		Rate:    rate,
	}, nil
}

// Clock sysvar 布局（bincode）：
// slot u64, epoch_start_timestamp i64, epoch u64, leader_schedule_epoch u64, unix_timestamp i64
func decodeClockEpoch(data []byte) (uint64, error) {
	r := utils.NewBinReader(data)
	r.Skip(8 + 8)
	epoch := r.ReadU64()
	if r.Err() != nil {
		return 0, fmt.Errorf("decode clock sysvar: %w", r.Err())
	}
	return epoch, nil
}

// StakeHistory sysvar 布局（bincode）：
// Vec<(epoch u64, {effective u64, activating u64, deactivating u64})>
func decodeStakeHistory(data []byte) (StakeHistory, error) {
	const maxEntries = 512 // 链上保留最近 512 个 epoch
	r := utils.NewBinReader(data)
	n := r.ReadVecLen(maxEntries)
	history := make(StakeHistory, n)
	for i := uint64(0); i < n; i++ {
		epoch := r.ReadU64()
		history[epoch] = StakeHistoryEntry{
			Effective:    r.ReadU64(),
			Activating:   r.ReadU64(),
			Deactivating: r.ReadU64(),
		}
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("decode stake-history sysvar: %w", r.Err())
	}
	return history, nil
}
