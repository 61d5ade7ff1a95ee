package diffmerge

import (
	"fmt"

	"snapshot-indexer-sol/internal/logic/votedec"
	"snapshot-indexer-sol/internal/meta"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/internal/utils"
	"snapshot-indexer-sol/pkg/logger"
)

// Previous 是上一 epoch 验证者集合的显式数据源。
// 首次运行没有历史文件，Load 返回空集合而非错误。
type Previous struct {
	byIdentity map[types.Pubkey]meta.ValidatorMeta
}

// Load 读取上一 epoch 的验证者集合文件（顶层 JSON 数组）。
// path 为空或文件不存在都是合法的"无历史数据"状态。
func Load(path string) (*Previous, error) {
	prev := &Previous{byIdentity: make(map[types.Pubkey]meta.ValidatorMeta)}
	if path == "" {
		return prev, nil
	}

	var metas []meta.ValidatorMeta
	found, err := utils.ReadJSONFile(path, &metas)
	if err != nil {
		return nil, fmt.Errorf("load previous validator collection: %w", err)
	}
	if !found {
		logger.Infof("no previous validator collection at %s, diff fields will be omitted", path)
		return prev, nil
	}

	for _, m := range metas {
		prev.byIdentity[m.IdentityKey] = m
	}
	logger.Infof("previous validator collection loaded: %s, validators=%d", path, len(metas))
	return prev, nil
}

// Merge 就地补全延续性字段：
//   - Delinquent：最近一条 epoch_credits 的 epoch 早于 currentEpoch-1，
//     即最近一个完整 epoch 没有产生任何新 vote credits；
//   - PreviousEpochCredits：上一 epoch 集合中同 identity 记录的最新 credits，
//     找不到历史记录时保持 null（不是错误）。
func Merge(current []meta.ValidatorMeta, prev *Previous, currentEpoch uint64) {
	matched := 0
	for i := range current {
		vm := &current[i]

		vm.Delinquent = isDelinquent(vm.EpochCredits, currentEpoch)

		if prev == nil {
			continue
		}
		prevMeta, ok := prev.byIdentity[vm.IdentityKey]
		if !ok {
			continue
		}
		matched++
		if n := len(prevMeta.EpochCredits); n > 0 {
			credits := prevMeta.EpochCredits[n-1].Credits
			vm.PreviousEpochCredits = &credits
		}
	}
	logger.Infof("epoch diff merged: current=%d, matched previous=%d", len(current), matched)
}

// isDelinquent 判断验证者在最近一个完整 epoch 是否毫无投票产出。
// epoch_credits 为空（从未投票），或最新一条记录的 epoch 落后于
// currentEpoch-1，都视为 delinquent。
func isDelinquent(credits []votedec.EpochCredit, currentEpoch uint64) bool {
	if len(credits) == 0 {
		return true
	}
	latest := credits[len(credits)-1].Epoch
	if currentEpoch == 0 {
		return false
	}
	return latest < currentEpoch-1
}
