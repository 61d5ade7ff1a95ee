package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunStatus 表示某个 (pass, epoch) 的处理状态
type RunStatus int

const (
	RunUnknown   RunStatus = 0
	RunPending   RunStatus = 1
	RunProcessed RunStatus = 2
)

// Pass 区分两条产出流水线
type Pass string

const (
	PassValidator Pass = "validator"
	PassToken     Pass = "token"
)

const (
	keyPrefix = "snapshot:run"

	// 一个 epoch 约两天，保留两个 epoch 的判重记录足够
	runTTL = 5 * 24 * time.Hour
)

// RedisRunStore 管理 Redis 中的 epoch 运行状态记录（幂等控制）。
// store 为 nil 时所有操作都是 no-op，单机批处理不强制依赖 Redis。
type RedisRunStore struct {
	rdb *redis.Client
}

func NewRedisRunStore(rdb *redis.Client) *RedisRunStore {
	return &RedisRunStore{rdb: rdb}
}

func (r *RedisRunStore) key(pass Pass, epoch uint64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, pass, epoch)
}

// GetRunStatus 获取 (pass, epoch) 的状态
func (r *RedisRunStore) GetRunStatus(ctx context.Context, pass Pass, epoch uint64) (RunStatus, error) {
	if r == nil || r.rdb == nil {
		return RunUnknown, nil
	}
	val, err := r.rdb.Get(ctx, r.key(pass, epoch)).Int()
	switch {
	case err == redis.Nil:
		return RunUnknown, nil
	case err != nil:
		return RunUnknown, fmt.Errorf("redis get error: %w", err)
	case val == int(RunProcessed):
		return RunProcessed, nil
	case val == int(RunPending):
		return RunPending, nil
	default:
		return RunUnknown, nil // 容错处理
	}
}

// MarkRunStatus 设置 (pass, epoch) 的状态
func (r *RedisRunStore) MarkRunStatus(ctx context.Context, pass Pass, epoch uint64, status RunStatus) error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, r.key(pass, epoch), int(status), runTTL).Err()
}

// MarkRunPending 标记开始处理（幂等控制）
func (r *RedisRunStore) MarkRunPending(ctx context.Context, pass Pass, epoch uint64) error {
	return r.MarkRunStatus(ctx, pass, epoch, RunPending)
}

// MarkRunProcessed 标记处理完成
func (r *RedisRunStore) MarkRunProcessed(ctx context.Context, pass Pass, epoch uint64) error {
	return r.MarkRunStatus(ctx, pass, epoch, RunProcessed)
}
