package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/provider"
	"github.com/railbook-next/internal/queue"
	"github.com/railbook-next/internal/service"

	"github.com/hibiken/asynq"
)

// LockExpirer 锁座过期
type LockExpirer interface {
	Expire(ctx context.Context, lockID string) (bool, error)
}

// OrderExpirer 订单过期
type OrderExpirer interface {
	Expire(ctx context.Context, orderID string) (bool, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	locks     LockExpirer
	orders    OrderExpirer
	publisher events.Publisher
}

// NewConsumer 从容器创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return nil
	}
	return newConsumer(c.SeatLockService, c.OrderService, c.Publisher)
}

func newConsumer(locks LockExpirer, orders OrderExpirer, publisher events.Publisher) *Consumer {
	return &Consumer{locks: locks, orders: orders, publisher: publisher}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSeatLockExpire, c.handleSeatLockExpire)
	mux.HandleFunc(queue.TaskOrderExpire, c.handleOrderExpire)
	mux.HandleFunc(queue.TaskBookingEventNotify, c.handleBookingEvent)
}

func (c *Consumer) handleSeatLockExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.locks == nil {
		logger.Debugw("worker_seat_lock_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SeatLockExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_seat_lock_expire_unmarshal_failed", "error", err)
		return err
	}
	lockID := strings.TrimSpace(payload.LockID)
	if lockID == "" {
		logger.Debugw("worker_seat_lock_expire_skip_invalid_payload")
		return nil
	}
	expired, err := c.locks.Expire(ctx, lockID)
	if err != nil {
		if errors.Is(err, service.ErrLockNotFound) {
			logger.Debugw("worker_seat_lock_expire_skip_not_found", "lock_id", lockID)
			return nil
		}
		logger.Warnw("worker_seat_lock_expire_failed", "lock_id", lockID, "error", err)
		return err
	}
	if !expired {
		// 已消费、已过期或尚未到期，交给周期扫描兜底
		logger.Debugw("worker_seat_lock_expire_skip", "lock_id", lockID)
	}
	return nil
}

func (c *Consumer) handleOrderExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.orders == nil {
		logger.Debugw("worker_order_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_expire_unmarshal_failed", "error", err)
		return err
	}
	orderID := strings.TrimSpace(payload.OrderID)
	if orderID == "" {
		logger.Debugw("worker_order_expire_skip_invalid_payload")
		return nil
	}
	expired, err := c.orders.Expire(ctx, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_expire_skip_not_found", "order_id", orderID)
			return nil
		}
		logger.Warnw("worker_order_expire_failed", "order_id", orderID, "error", err)
		return err
	}
	if !expired {
		logger.Debugw("worker_order_expire_skip", "order_id", orderID)
	}
	return nil
}

func (c *Consumer) handleBookingEvent(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil || c.publisher == nil {
		logger.Debugw("worker_booking_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BookingEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_booking_event_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.Event.Type) == "" {
		logger.Debugw("worker_booking_event_skip_invalid_payload", "event_id", payload.Event.ID)
		return nil
	}
	if err := c.publisher.Publish(ctx, payload.Event); err != nil {
		logger.Warnw("worker_booking_event_publish_failed",
			"event_id", payload.Event.ID,
			"event_type", payload.Event.Type,
			"aggregate_id", payload.Event.AggregateID,
			"error", err,
		)
		return err
	}
	return nil
}
