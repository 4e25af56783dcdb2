package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/railbook-next/internal/logger"

	"github.com/google/uuid"
)

// Event 领域事件
type Event struct {
	ID          string                 `json:"event_id"`
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	UserID      string                 `json:"user_id,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// NewEvent 创建事件并补齐 ID 与时间
func NewEvent(eventType, aggregateID, userID string, occurredAt time.Time, data map[string]interface{}) Event {
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        strings.TrimSpace(eventType),
		AggregateID: strings.TrimSpace(aggregateID),
		UserID:      strings.TrimSpace(userID),
		OccurredAt:  occurredAt.UTC(),
		Data:        data,
	}
}

// Encode 序列化事件
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode 反序列化事件
func Decode(body []byte) (Event, error) {
	var event Event
	err := json.Unmarshal(body, &event)
	return event, err
}

// Publisher 事件投递接口
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher 仅写日志的投递实现（events.driver=none）
type LogPublisher struct{}

// NewLogPublisher 创建日志投递实现
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish 记录事件
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	logger.Infow("booking_event_published",
		"driver", "log",
		"event_id", event.ID,
		"event_type", event.Type,
		"aggregate_id", event.AggregateID,
	)
	return nil
}

// Close 无需释放资源
func (p *LogPublisher) Close() error {
	return nil
}
