package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"snapshot-indexer-sol/internal/config"
	"snapshot-indexer-sol/internal/logic/sysvar"
	"snapshot-indexer-sol/internal/logic/tokenbal"
	"snapshot-indexer-sol/internal/meta"
	"snapshot-indexer-sol/internal/mq"
	"snapshot-indexer-sol/internal/progress"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/svc"
	"snapshot-indexer-sol/internal/types"
	"snapshot-indexer-sol/internal/utils"
	"snapshot-indexer-sol/pkg/logger"
)

var (
	configFile = flag.String("f", "etc/tokens.yaml", "the config file")

	ledgerPath = flag.String("ledger-path", "", "path to the ledger snapshot directory (required)")
	slot       = flag.Uint64("slot", 0, "snapshot slot to read, 0 = highest available")
	mintFlag   = flag.String("mint", "", "token mint to aggregate (required)")

	outputBalances = flag.String("output-token-balance-collection", "", "output path for the token balance collection (required)")
)

// tokenBalanceCollection 是 token pass 的输出文件结构：
// 头部携带 mint 维度信息，holders 为按 owner 汇总的余额数组。
type tokenBalanceCollection struct {
	Mint     types.Pubkey            `json:"mint"`
	Decimals uint8                   `json:"decimals"`
	Name     string                  `json:"name,omitempty"`
	Symbol   string                  `json:"symbol,omitempty"`
	URI      string                  `json:"uri,omitempty"`
	Holders  []meta.TokenBalanceMeta `json:"holders"`
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())
	defer logger.Sync()

	if *ledgerPath == "" || *mintFlag == "" || *outputBalances == "" {
		fmt.Fprintln(os.Stderr, "missing required flags: --ledger-path, --mint, --output-token-balance-collection")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(c); err != nil {
		logger.Errorf("token pass failed: %v", err)
		os.Exit(1)
	}
}

func run(c config.Config) error {
	ctx := context.Background()

	mint, err := types.TryPubkeyFromBase58(*mintFlag)
	if err != nil {
		return fmt.Errorf("invalid --mint: %w", err)
	}

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		return fmt.Errorf("init service context: %w", err)
	}
	defer serviceContext.Close()

	store, err := snapshot.Open(*ledgerPath, *slot)
	if err != nil {
		return err
	}

	// token pass 不依赖 epoch state，epoch 仅用于判重与摘要；
	// clock sysvar 缺失时降级为不判重。
	var epoch uint64
	dedupe := false
	if es, err := sysvar.Resolve(store, nil); err == nil {
		epoch = es.Epoch
		dedupe = true
		status, err := serviceContext.RunStore.GetRunStatus(ctx, progress.PassToken, epoch)
		if err != nil {
			logger.Warnf("redis run status check failed, continuing: %v", err)
		} else if status == progress.RunProcessed {
			logger.Infof("epoch %d already processed, skipping", epoch)
			return nil
		}
		if err := serviceContext.RunStore.MarkRunPending(ctx, progress.PassToken, epoch); err != nil {
			logger.Warnf("redis mark pending failed, continuing: %v", err)
		}
	} else {
		logger.Warnf("epoch state unavailable, dedupe disabled: %v", err)
	}

	result, err := tokenbal.Run(ctx, store, mint, tokenbal.Options{
		Workers:  c.SnapshotConf.Workers,
		Resolver: tokenbal.NewMetadataResolver(store, serviceContext.MetadataCache),
	})
	if err != nil {
		return err
	}

	collection := tokenBalanceCollection{
		Mint:     result.Mint,
		Decimals: result.Decimals,
		Holders:  result.Balances,
	}
	if md := result.Metadata; md != nil {
		collection.Name = md.Name
		collection.Symbol = md.Symbol
		collection.URI = md.URI
	}
	if err := utils.WriteJSONFile(*outputBalances, collection); err != nil {
		return err
	}
	logger.Infof("collection written: %s", *outputBalances)

	result.Stats.LogSummary()
	if err := result.Stats.WriteReport(c.StatsReportPath); err != nil {
		logger.Warnf("stats report write failed: %v", err)
	}

	if dedupe {
		if err := serviceContext.RunStore.MarkRunProcessed(ctx, progress.PassToken, epoch); err != nil {
			logger.Warnf("redis mark processed failed: %v", err)
		}
	}

	if serviceContext.Producer != nil {
		summary := &mq.RunSummary{
			Pass:           string(progress.PassToken),
			Epoch:          epoch,
			Slot:           store.Slot(),
			TokenHolders:   len(result.Balances),
			CorruptRecords: result.Stats.CorruptRecords.Load(),
		}
		if err := mq.PublishRunSummary(ctx, serviceContext.Producer, c.KafkaProducerConf.Topic, summary); err != nil {
			logger.Errorf("run summary publish failed: %v", err)
		}
	}
	return nil
}
