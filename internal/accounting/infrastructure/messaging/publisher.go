// Package messaging 账本事件 Kafka 发布
package messaging

import (
	"context"

	"github.com/wyfcoding/primecredit/internal/accounting/domain"
	"github.com/wyfcoding/primecredit/pkg/mq"
)

// KafkaPublisher 将账本事件写入 Kafka，key 为账户 ID 保证同账户事件有序
type KafkaPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

func NewKafkaPublisher(producer *mq.KafkaProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishLedgerEvent(ctx context.Context, event domain.LedgerEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.AccountID, event)
}

// NoopPublisher Kafka 未启用时的空实现
type NoopPublisher struct{}

func (NoopPublisher) PublishLedgerEvent(ctx context.Context, event domain.LedgerEvent) error {
	return nil
}
