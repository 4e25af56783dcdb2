package service

import (
	"context"
	"time"

	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/queue"
)

// BookingEventEmitter 在事务提交后投递领域事件
// 启用队列时经 asynq 异步投递（失败可重试），否则同步投递；投递失败只记录日志
type BookingEventEmitter struct {
	publisher   events.Publisher
	queueClient *queue.Client
}

// NewBookingEventEmitter 创建事件投递器
func NewBookingEventEmitter(publisher events.Publisher, queueClient *queue.Client) *BookingEventEmitter {
	if publisher == nil {
		publisher = events.NewLogPublisher()
	}
	return &BookingEventEmitter{publisher: publisher, queueClient: queueClient}
}

// Emit 投递事件
func (e *BookingEventEmitter) Emit(ctx context.Context, event events.Event) {
	if e == nil {
		return
	}
	if e.queueClient != nil && e.queueClient.Enabled() {
		err := e.queueClient.EnqueueBookingEvent(queue.BookingEventPayload{Event: event})
		if err == nil {
			return
		}
		logger.Warnw("booking_event_enqueue_failed",
			"event_type", event.Type,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.publisher.Publish(publishCtx, event); err != nil {
		logger.Errorw("booking_event_publish_failed",
			"event_type", event.Type,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
	}
}

// Publisher 返回底层投递实现，供任务消费端使用
func (e *BookingEventEmitter) Publisher() events.Publisher {
	if e == nil {
		return nil
	}
	return e.publisher
}
