package tokenbal

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	sdktoken "github.com/blocto/solana-go-sdk/program/token"

	"snapshot-indexer-sol/internal/cache"
	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/logic/classifier"
	"snapshot-indexer-sol/internal/meta"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/stats"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/pkg/logger"
)

// Options 控制 token 余额 pass
type Options struct {
	Workers  int               // <=0 时取 CPU 核数
	Resolver *MetadataResolver // 可选，nil 时不解析元数据
}

// Result 是单个 mint 的持有人汇总结果。
// Balances 已按 owner base58 字典序排序。
type Result struct {
	Mint     types.Pubkey
	Decimals uint8
	Metadata *cache.TokenMetadata // 未解析到时为 nil
	Balances []meta.TokenBalanceMeta
	Stats    *stats.RunStats
}

// workerState 是单个 worker 独占的局部余额表，drain 之后按 owner 求和合并
type workerState struct {
	balances map[types.Pubkey]uint64
	stats    stats.RunStats
}

// Run 遍历快照账户流，汇总指定 mint 的 token 持有量（按 owner 聚合）。
// 与验证者 pass 共用同一套快照读取与分类逻辑，但不依赖 epoch state。
// Token2022 账户的基础布局与 SPL Token 相同，统一走 blocto 解码。
func Run(ctx context.Context, store snapshot.AccountStore, mint types.Pubkey, opt Options) (*Result, error) {
	workers := opt.Workers
	if workers <= 0 {
		workers = consts.CpuCount
	}

	startTime := time.Now()
	runStats := &stats.RunStats{}

	jobs := make(chan snapshot.RawAccount, 4*workers)
	states := make([]*workerState, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		st := &workerState{balances: make(map[types.Pubkey]uint64)}
		states[w] = st
		go func() {
			defer wg.Done()
			for acc := range jobs {
				processAccount(st, mint, acc)
			}
		}()
	}

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

	merged := make(map[types.Pubkey]uint64)
	for _, st := range states {
		runStats.Merge(&st.stats)
		for owner, amount := range st.balances {
			merged[owner] += amount
		}
	}

	result := &Result{
		Mint:     mint,
		Balances: make([]meta.TokenBalanceMeta, 0, len(merged)),
		Stats:    runStats,
	}
	for owner, balance := range merged {
		result.Balances = append(result.Balances, meta.TokenBalanceMeta{Owner: owner, Balance: balance})
	}

	// 排序是序列化前的最后一步，也是输出的唯一确定性保证
	meta.SortTokenBalanceMetas(result.Balances)

	decimals, err := resolveDecimals(store, mint)
	if err != nil {
		return nil, err
	}
	result.Decimals = decimals

	if opt.Resolver != nil {
		md, err := opt.Resolver.Resolve(mint)
		if err != nil {
			runStats.MetadataMisses.Add(1)
			logger.Warnf("token metadata unresolved: mint=%s, %v", mint, err)
		} else {
			result.Metadata = md
		}
	}

	logger.Infof("token balance pass finished: mint=%s, holders=%d, elapsed=%v",
		mint, len(result.Balances), time.Since(startTime))
	return result, nil
}

// processAccount 解码单个 token 账户并累加到局部余额表。
// 其他 mint 的账户直接跳过，不计入任何错误。
func processAccount(st *workerState, mint types.Pubkey, acc snapshot.RawAccount) {
	st.stats.Scanned.Add(1)

	if classifier.Classify(acc.Owner) != classifier.ClassToken {
		st.stats.Ignored.Add(1)
		return
	}
	if len(acc.Data) != sdktoken.TokenAccountSize {
		return // mint / multisig 等同 program 的其他账户类型
	}

	parsed, err := sdktoken.TokenAccountFromData(acc.Data)
	if err != nil {
		st.stats.CorruptRecords.Add(1)
		logger.Warnf("corrupt token account skipped: %s, %v", acc.Pubkey, err)
		return
	}
	if types.Pubkey(parsed.Mint) != mint {
		return
	}

	st.stats.TokenAccounts.Add(1)
	st.balances[types.Pubkey(parsed.Owner)] += parsed.Amount
}

// resolveDecimals 点查 mint 账户取精度（mint 账户缺失视为致命错误）
func resolveDecimals(store snapshot.AccountStore, mint types.Pubkey) (uint8, error) {
	acc, found, err := store.Lookup(mint)
	if err != nil {
		return 0, fmt.Errorf("lookup mint account: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("mint account %s not in snapshot", mint)
	}
	parsed, err := sdktoken.MintAccountFromData(acc.Data)
	if err != nil {
		return 0, fmt.Errorf("decode mint account %s: %w", mint, err)
	}
	return parsed.Decimals, nil
}
