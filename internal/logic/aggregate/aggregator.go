package aggregate

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/logic/classifier"
	"snapshot-indexer-sol/internal/logic/jito"
	"snapshot-indexer-sol/internal/logic/stakedec"
	"snapshot-indexer-sol/internal/logic/sysvar"
	"snapshot-indexer-sol/internal/logic/votedec"
	"snapshot-indexer-sol/internal/meta"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/stats"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/pkg/logger"
	pkgutils "snapshot-indexer-sol/pkg/utils"
)

// Options 控制聚合过程
type Options struct {
	Workers           int // <=0 时取 CPU 核数
	VoteCreditsWindow int // <=0 时取默认窗口
}

// Result 是验证者 pass 的聚合结果。
// Validators/Stakes 已按主键 base58 字典序排序（序列化前的最后一步）。
type Result struct {
	Epoch      uint64
	Slot       uint64
	Validators []meta.ValidatorMeta
	Stakes     []meta.StakeMeta
	Stats      *stats.RunStats
}

// voterAccum 按 vote account 累加三段质押
type voterAccum struct {
	effective    uint64
	activating   uint64
	deactivating uint64
}

// workerState 是单个 worker 独占的局部状态，drain 之后按 key 求和合并，
// 避免所有 worker 争抢一把锁。
type workerState struct {
	votes    []*votedec.VoteAccountRecord
	stakes   []meta.StakeMeta
	mev      []*jito.MevCommission
	prioFees []*jito.PriorityFeeCommission
	accum    map[types.Pubkey]*voterAccum
	stats    stats.RunStats
}

// Run 消费快照账户流并产出验证者/质押两个集合。
// 账户之间相互独立，分类与解码在 worker 池内并行；EpochState 只读共享。
// 可恢复错误（单条损坏记录、不支持的 vote 布局）跳过并计数；
// 流本身的致命错误中止整次运行，不产生任何输出。
func Run(ctx context.Context, store snapshot.AccountStore, es *sysvar.EpochState, opt Options) (*Result, error) {
	workers := opt.Workers
	if workers <= 0 {
		workers = consts.CpuCount
	}
	window := opt.VoteCreditsWindow
	if window <= 0 {
		window = consts.DefaultVoteCreditsWindow
	}

	startTime := time.Now()
	runStats := &stats.RunStats{}

	jobs := make(chan snapshot.RawAccount, 4*workers)
	states := make([]*workerState, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		st := &workerState{accum: make(map[types.Pubkey]*voterAccum)}
		states[w] = st
		go func() {
			defer wg.Done()
			for acc := range jobs {
				processAccount(st, es, acc, window)
			}
		}()
	}

	// 生产者：单遍惰性遍历，逐条下发
	var streamErr error
	it := store.Iterator()
producer:
	for {
		acc, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if snapshot.IsCorruptRecord(err) {
				runStats.CorruptRecords.Add(1)
				continue
			}
			streamErr = err
			break
		}
		select {
		case jobs <- acc:
		case <-ctx.Done():
			streamErr = ctx.Err()
			break producer
		}
	}
	close(jobs)
	wg.Wait()

	if streamErr != nil {
		return nil, fmt.Errorf("account stream aborted: %w", streamErr)
	}

	// 合并屏障：worker 局部状态按 key 求和
	merged := mergeStates(states, runStats)
	result := assemble(merged, es, runStats)

	// 排序是序列化前的最后一步，也是输出的唯一确定性保证
	meta.SortValidatorMetas(result.Validators)
	meta.SortStakeMetas(result.Stakes)

	logger.Infof("aggregation finished: epoch=%d, validators=%d, stakes=%d, elapsed=%v",
		es.Epoch, len(result.Validators), len(result.Stakes), time.Since(startTime))
	return result, nil
}

// processAccount 对单条记录做分类 + 解码 + 局部累加
func processAccount(st *workerState, es *sysvar.EpochState, acc snapshot.RawAccount, creditsWindow int) {
	st.stats.Scanned.Add(1)

	switch classifier.Classify(acc.Owner) {
	case classifier.ClassVote:
		record, err := votedec.Decode(acc.Pubkey, acc.Data, creditsWindow)
		if err != nil {
			if votedec.IsUnsupportedLayout(err) {
				st.stats.UnsupportedVote.Add(1)
				logger.Warnf("vote account excluded: %v", err)
			} else {
				st.stats.CorruptRecords.Add(1)
				logger.Warnf("corrupt vote account skipped: %v", err)
			}
			return
		}
		st.stats.VoteAccounts.Add(1)
		st.votes = append(st.votes, record)

	case classifier.ClassStake:
		record, err := stakedec.Decode(acc, es.Epoch)
		if err != nil {
			st.stats.CorruptRecords.Add(1)
			logger.Warnf("corrupt stake account skipped: %v", err)
			return
		}
		if record == nil {
			return // uninitialized / rewards pool：忽略而非错误
		}
		st.stats.StakeAccounts.Add(1)
		if record.Delegation == nil {
			st.stats.NonDelegatedStakes.Add(1)
			return
		}

		split := es.Split(record.Delegation)
		st.stakes = append(st.stakes, meta.StakeMeta{
			StakeAccountKey:      record.StakeAccount,
			VoterKey:             record.Delegation.Voter,
			DelegatedLamports:    record.Delegation.Stake,
			EffectiveLamports:    split.Effective,
			ActivatingLamports:   split.Activating,
			DeactivatingLamports: split.Deactivating,
			BalanceLamports:      record.Lamports,
			StakeAuthority:       record.StakeAuthority,
			WithdrawAuthority:    record.WithdrawAuthority,
		})
		accum := st.accum[record.Delegation.Voter]
		if accum == nil {
			accum = &voterAccum{}
			st.accum[record.Delegation.Voter] = accum
		}
		accum.effective += split.Effective
		accum.activating += split.Activating
		accum.deactivating += split.Deactivating

	case classifier.ClassTipDistribution:
		if !jito.IsTipDistributionAccount(acc.Data) {
			return // 同一 program 的其他账户类型
		}
		mev, err := jito.Decode(acc)
		if err != nil {
			st.stats.CorruptRecords.Add(1)
			logger.Warnf("corrupt tip distribution account skipped: %v", err)
			return
		}
		st.stats.TipDistributions.Add(1)
		st.mev = append(st.mev, mev)

	case classifier.ClassPriorityFeeDistribution:
		if !jito.IsPriorityFeeDistributionAccount(acc.Data) {
			return // 同一 program 的其他账户类型
		}
		pf, err := jito.DecodePriorityFee(acc)
		if err != nil {
			st.stats.CorruptRecords.Add(1)
			logger.Warnf("corrupt priority fee distribution account skipped: %v", err)
			return
		}
		st.stats.PriorityFeeDists.Add(1)
		st.prioFees = append(st.prioFees, pf)

	case classifier.ClassToken:
		st.stats.TokenAccounts.Add(1)

	default:
		st.stats.Ignored.Add(1)
	}
}

// merged 是所有 worker 状态求和后的全局视图
type mergedState struct {
	votes    []*votedec.VoteAccountRecord
	stakes   []meta.StakeMeta
	accum    map[types.Pubkey]*voterAccum
	mev      []*jito.MevCommission
	prioFees []*jito.PriorityFeeCommission
}

func mergeStates(states []*workerState, runStats *stats.RunStats) *mergedState {
	m := &mergedState{accum: make(map[types.Pubkey]*voterAccum)}
	for _, st := range states {
		runStats.Merge(&st.stats)
		m.votes = append(m.votes, st.votes...)
		m.stakes = append(m.stakes, st.stakes...)
		m.mev = append(m.mev, st.mev...)
		m.prioFees = append(m.prioFees, st.prioFees...)
		for voter, a := range st.accum {
			total := m.accum[voter]
			if total == nil {
				total = &voterAccum{}
				m.accum[voter] = total
			}
			total.effective += a.effective
			total.activating += a.activating
			total.deactivating += a.deactivating
		}
	}
	return m
}

func assemble(m *mergedState, es *sysvar.EpochState, runStats *stats.RunStats) *Result {
	// 只采纳当前 epoch 创建的 tip / priority fee distribution 账户
	mevByVoter := make(map[types.Pubkey]uint16)
	for _, mc := range m.mev {
		if mc.EpochCreatedAt == es.Epoch {
			mevByVoter[mc.VoteAccount] = mc.CommissionBps
		}
	}
	prioByVoter := make(map[types.Pubkey]*jito.PriorityFeeCommission)
	for _, pf := range m.prioFees {
		if pf.EpochCreatedAt == es.Epoch {
			prioByVoter[pf.VoteAccount] = pf
		}
	}

	validators := pkgutils.ParallelMap(m.votes, consts.CpuCount,
		func(v *votedec.VoteAccountRecord) meta.ValidatorMeta {
			vm := meta.ValidatorMeta{
				IdentityKey:    v.NodePubkey,
				VoteAccountKey: v.VoteAccount,
				Commission:     v.Commission,
				EpochCredits:   v.EpochCredits,
			}
			if accum := m.accum[v.VoteAccount]; accum != nil {
				vm.ActivatedStakeLamports = accum.effective
			}
			if bps, ok := mevByVoter[v.VoteAccount]; ok {
				vm.MevCommissionBps = &bps
			}
			if pf, ok := prioByVoter[v.VoteAccount]; ok {
				bps, lamports := pf.CommissionBps, pf.TotalLamports
				vm.PriorityFeeCommissionBps = &bps
				vm.PriorityFeeLamports = &lamports
			}
			return vm
		})

	voteSet := make(map[types.Pubkey]struct{}, len(m.votes))
	for _, v := range m.votes {
		voteSet[v.VoteAccount] = struct{}{}
	}
	for _, sm := range m.stakes {
		if _, ok := voteSet[sm.VoterKey]; !ok {
			runStats.OrphanDelegations.Add(1)
		}
	}
	for _, vm := range validators {
		if vm.ActivatedStakeLamports == 0 {
			runStats.ZeroStakeValidators.Add(1)
		}
	}

	return &Result{
		Epoch:      es.Epoch,
		Slot:       es.Slot,
		Validators: validators,
		Stakes:     m.stakes,
		Stats:      runStats,
	}
}
