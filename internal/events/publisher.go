package events

import (
	"fmt"
	"strings"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
)

// NewPublisher 按 events.driver 创建投递实现
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", constants.EventsDriverNone:
		return NewLogPublisher(), nil
	case constants.EventsDriverKafka:
		publisher, err := NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case constants.EventsDriverRabbitMQ:
		publisher, err := NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events driver: %s", cfg.Driver)
	}
}
