package svc

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"

	"snapshot-indexer-sol/internal/cache"
	"snapshot-indexer-sol/internal/config"
	"snapshot-indexer-sol/internal/mq"
	"snapshot-indexer-sol/internal/progress"
	"snapshot-indexer-sol/pkg/logger"
)

const defaultMetadataCacheSize = 1024

// ServiceContext 包含一次快照运行依赖的外部资源。
// Kafka 与 Redis 都是可选的：未配置时对应字段为 nil，主流程照常工作。
type ServiceContext struct {
	Config        config.Config
	Producer      *kafka.Producer
	RunStore      *progress.RedisRunStore
	MetadataCache *cache.MetadataCache
}

// NewServiceContext 创建服务上下文
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	ctx := &ServiceContext{Config: c}

	if c.KafkaProducerConf.Enabled {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToProducerOption())
		if err != nil {
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		ctx.Producer = producer
	}

	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: c.RedisAddr, // eg: "127.0.0.1:6379"
		})
		ctx.RunStore = progress.NewRedisRunStore(rdb)
	}

	cacheSize := c.SnapshotConf.MetadataCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultMetadataCacheSize
	}
	mdCache, err := cache.NewMetadataCache(cacheSize)
	if err != nil {
		return nil, err
	}
	ctx.MetadataCache = mdCache

	logger.Infof("服务上下文初始化完成: kafka=%v, redis=%v",
		ctx.Producer != nil, ctx.RunStore != nil)
	return ctx, nil
}

// Close 关闭服务上下文中的资源
func (ctx *ServiceContext) Close() {
	if ctx.Producer != nil {
		ctx.Producer.Flush(5000)
		ctx.Producer.Close()
	}
}
