package queue

import (
	"encoding/json"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/events"

	"github.com/hibiken/asynq"
)

const (
	// TaskSeatLockExpire 锁座到期任务
	TaskSeatLockExpire = constants.TaskSeatLockExpire
	// TaskOrderExpire 订单支付超时任务
	TaskOrderExpire = constants.TaskOrderExpire
	// TaskBookingEventNotify 领域事件投递任务
	TaskBookingEventNotify = constants.TaskBookingEventNotify
)

// SeatLockExpirePayload 锁座到期任务载荷
type SeatLockExpirePayload struct {
	LockID string `json:"lock_id"`
}

// OrderExpirePayload 订单超时任务载荷
type OrderExpirePayload struct {
	OrderID string `json:"order_id"`
}

// BookingEventPayload 领域事件任务载荷
type BookingEventPayload struct {
	Event events.Event `json:"event"`
}

// NewSeatLockExpireTask 创建锁座到期任务
func NewSeatLockExpireTask(payload SeatLockExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSeatLockExpire, body), nil
}

// NewOrderExpireTask 创建订单超时任务
func NewOrderExpireTask(payload OrderExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExpire, body), nil
}

// NewBookingEventTask 创建领域事件投递任务
func NewBookingEventTask(payload BookingEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingEventNotify, body), nil
}
