package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/logger"

	"github.com/IBM/sarama"
)

// KafkaPublisher 基于 sarama SyncProducer 的事件投递
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher 连接 Kafka 并创建同步生产者
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are empty")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Successes = true
	if clientID := strings.TrimSpace(cfg.ClientID); clientID != "" {
		saramaCfg.ClientID = clientID
	}

	producer, err := sarama.NewSyncProducer(brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer failed: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.Topic), nil
}

// NewKafkaPublisherWithProducer 使用已有生产者创建投递实现
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "railbook.booking.events"
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish 以聚合 ID 作为分区键投递事件，保证同一订单事件有序
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event failed: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send kafka message failed: %w", err)
	}
	logger.Debugw("booking_event_published",
		"driver", "kafka",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"event_type", event.Type,
		"aggregate_id", event.AggregateID,
	)
	return nil
}

// Close 关闭生产者
func (p *KafkaPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
