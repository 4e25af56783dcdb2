package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpChannel 投递所需的 channel 能力
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher 基于 topic exchange 的事件投递，routing key 为事件类型
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
}

// NewRabbitMQPublisher 连接 RabbitMQ 并声明 exchange
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("rabbitmq url is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	publisher, err := newRabbitMQPublisherWithChannel(ch, cfg.Exchange)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	return publisher, nil
}

func newRabbitMQPublisherWithChannel(ch amqpChannel, exchange string) (*RabbitMQPublisher, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = "railbook.booking"
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare rabbitmq exchange failed: %w", err)
	}
	return &RabbitMQPublisher{channel: ch, exchange: exchange}, nil
}

// Publish 投递持久化消息
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event failed: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish rabbitmq message failed: %w", err)
	}
	logger.Debugw("booking_event_published",
		"driver", "rabbitmq",
		"exchange", p.exchange,
		"event_type", event.Type,
		"aggregate_id", event.AggregateID,
	)
	return nil
}

// Close 关闭 channel 与连接
func (p *RabbitMQPublisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
