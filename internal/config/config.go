package config

import (
	"snapshot-indexer-sol/internal/mq"
	"snapshot-indexer-sol/pkg/logger"
)

type LogConfig struct {
	Format   string `yaml:"format"`   // 日志格式，支持 "console" 或 "json"
	LogDir   string `yaml:"log_dir"`  // 日志目录（可为相对路径或绝对路径）
	Level    string `yaml:"level"`    // 日志级别：debug / info / warn / error
	Compress bool   `yaml:"compress"` // 是否压缩旧日志文件
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 表示运行摘要发布的 Kafka 配置。
// Enabled 为 false 时完全跳过 Kafka 初始化，批处理不强制依赖消息队列。
type KafkaProducerConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Brokers    string `yaml:"brokers"`    // Kafka broker 地址，多个用英文逗号分隔
	Topic      string `yaml:"topic"`      // 运行摘要 topic
	Partitions int    `yaml:"partitions"` // topic 分区数（仅创建时生效）
	BatchSize  int    `yaml:"batch_size"` // 批处理大小（单位字节）
	LingerMs   int    `yaml:"linger_ms"`  // 批处理最大延迟（毫秒）
}

func (c *KafkaProducerConfig) ToProducerOption() mq.ProducerOption {
	return mq.ProducerOption{
		Brokers:    c.Brokers,
		Topic:      c.Topic,
		Partitions: c.Partitions,
		BatchSize:  c.BatchSize,
		LingerMs:   c.LingerMs,
	}
}

// SnapshotConfig 控制快照解析过程
type SnapshotConfig struct {
	Workers            int     `yaml:"workers"`              // <=0 时取 CPU 核数
	VoteCreditsWindow  int     `yaml:"vote_credits_window"`  // epoch_credits 保留窗口，<=0 时取默认值
	WarmupCooldownRate float64 `yaml:"warmup_cooldown_rate"` // <=0 时取默认值 0.09
	MetadataCacheSize  int     `yaml:"metadata_cache_size"`  // token 元数据缓存容量，<=0 时取默认值
}

// Config 是两个 CLI 共用的主配置结构体
type Config struct {
	LogConf           LogConfig           `yaml:"logger"`
	SnapshotConf      SnapshotConfig      `yaml:"snapshot"`
	KafkaProducerConf KafkaProducerConfig `yaml:"kafka_producer"`

	RedisAddr       string `yaml:"redis_addr"`   // Redis 地址，空表示禁用 epoch 判重
	StatsReportPath string `yaml:"stats_report"` // 运行统计 YAML 输出路径，空表示不输出
}
