package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// RunSummary 是一次快照运行结束后发布的摘要消息。
// 下游据此触发自己的拉取逻辑，消息本体不携带集合数据。
type RunSummary struct {
	Pass           string `json:"pass"` // validator / token
	Epoch          uint64 `json:"epoch"`
	Slot           uint64 `json:"slot"`
	Validators     int    `json:"validators,omitempty"`
	Stakes         int    `json:"stakes,omitempty"`
	TokenHolders   int    `json:"token_holders,omitempty"`
	CorruptRecords uint64 `json:"corrupt_records"`
	FinishedAtUnix int64  `json:"finished_at_unix"`
}

// PublishRunSummary 发送运行摘要并等待 broker ack。
// 发布失败不影响已落盘的输出文件，调用方记 error 日志即可。
func PublishRunSummary(ctx context.Context, producer *kafka.Producer, topic string, summary *RunSummary) error {
	summary.FinishedAtUnix = time.Now().Unix()
	value, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)
	err = producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(fmt.Sprintf("%s:%d", summary.Pass, summary.Epoch)),
		Value: value,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("produce error: %w", err)
	}

	select {
	case e, ok := <-deliveryChan:
		if !ok {
			return fmt.Errorf("delivery channel closed unexpectedly")
		}
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("invalid message type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return msg.TopicPartition.Error
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("ctx cancelled: %w", ctx.Err())
	}
}
