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
	"snapshot-indexer-sol/internal/consts"
	"snapshot-indexer-sol/internal/logic/aggregate"
	"snapshot-indexer-sol/internal/logic/diffmerge"
	"snapshot-indexer-sol/internal/logic/sysvar"
	"snapshot-indexer-sol/internal/mq"
	"snapshot-indexer-sol/internal/progress"
	"snapshot-indexer-sol/internal/snapshot"
	"snapshot-indexer-sol/internal/svc"
	"snapshot-indexer-sol/internal/utils"
	"snapshot-indexer-sol/pkg/logger"
)

var (
	configFile = flag.String("f", "etc/validator.yaml", "the config file")

	ledgerPath = flag.String("ledger-path", "", "path to the ledger snapshot directory (required)")
	slot       = flag.Uint64("slot", 0, "snapshot slot to read, 0 = highest available")

	outputValidators = flag.String("output-validator-meta-collection", "", "output path for the validator collection (required)")
	outputStakes     = flag.String("output-stake-meta-collection", "", "output path for the stake collection (required)")
	previousPath     = flag.String("previous-validator-meta-collection", "", "previous epoch validator collection (optional)")
)

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

	if *ledgerPath == "" || *outputValidators == "" || *outputStakes == "" {
		fmt.Fprintln(os.Stderr, "missing required flags: --ledger-path, --output-validator-meta-collection, --output-stake-meta-collection")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(c); err != nil {
		// 致命错误：不产生任何输出文件，非零退出
		logger.Errorf("validator pass failed: %v", err)
		os.Exit(1)
	}
}

func run(c config.Config) error {
	ctx := context.Background()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		return fmt.Errorf("init service context: %w", err)
	}
	defer serviceContext.Close()

	store, err := snapshot.Open(*ledgerPath, *slot)
	if err != nil {
		return err
	}

	rate := c.SnapshotConf.WarmupCooldownRate
	if rate <= 0 {
		rate = consts.DefaultWarmupCooldownRate
	}
	es, err := sysvar.Resolve(store, sysvar.FixedRate(rate))
	if err != nil {
		return err
	}
	logger.Infof("epoch state resolved: epoch=%d, slot=%d", es.Epoch, store.Slot())

	// 可选的 Redis 判重：同一 (pass, epoch) 已处理过则直接幂等退出
	status, err := serviceContext.RunStore.GetRunStatus(ctx, progress.PassValidator, es.Epoch)
	if err != nil {
		logger.Warnf("redis run status check failed, continuing: %v", err)
	} else if status == progress.RunProcessed {
		logger.Infof("epoch %d already processed, skipping", es.Epoch)
		return nil
	}
	if err := serviceContext.RunStore.MarkRunPending(ctx, progress.PassValidator, es.Epoch); err != nil {
		logger.Warnf("redis mark pending failed, continuing: %v", err)
	}

	result, err := aggregate.Run(ctx, store, es, aggregate.Options{
		Workers:           c.SnapshotConf.Workers,
		VoteCreditsWindow: c.SnapshotConf.VoteCreditsWindow,
	})
	if err != nil {
		return err
	}

	prev, err := diffmerge.Load(*previousPath)
	if err != nil {
		return err
	}
	diffmerge.Merge(result.Validators, prev, es.Epoch)

	// 两个集合要么都出现要么都不出现
	if err := utils.WriteJSONFiles(
		utils.JSONTarget{Path: *outputValidators, Value: result.Validators},
		utils.JSONTarget{Path: *outputStakes, Value: result.Stakes},
	); err != nil {
		return err
	}
	logger.Infof("collections written: validators=%s, stakes=%s", *outputValidators, *outputStakes)

	result.Stats.LogSummary()
	if err := result.Stats.WriteReport(c.StatsReportPath); err != nil {
		logger.Warnf("stats report write failed: %v", err)
	}

	if err := serviceContext.RunStore.MarkRunProcessed(ctx, progress.PassValidator, es.Epoch); err != nil {
		logger.Warnf("redis mark processed failed: %v", err)
	}

	if serviceContext.Producer != nil {
		summary := &mq.RunSummary{
			Pass:           string(progress.PassValidator),
			Epoch:          es.Epoch,
			Slot:           store.Slot(),
			Validators:     len(result.Validators),
			Stakes:         len(result.Stakes),
			CorruptRecords: result.Stats.CorruptRecords.Load(),
		}
		if err := mq.PublishRunSummary(ctx, serviceContext.Producer, c.KafkaProducerConf.Topic, summary); err != nil {
			logger.Errorf("run summary publish failed: %v", err)
		}
	}
	return nil
}
