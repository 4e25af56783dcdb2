package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 到期类任务队列
	CriticalQueue = constants.QueueCritical
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSeatLockExpire 推送锁座到期任务，同一锁座只保留一个任务
func (c *Client) EnqueueSeatLockExpire(payload SeatLockExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewSeatLockExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueUnique(task, "seat_lock_expire:"+payload.LockID, delay)
}

// EnqueueOrderExpire 推送订单超时任务，同一订单只保留一个任务
func (c *Client) EnqueueOrderExpire(payload OrderExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueUnique(task, "order_expire:"+payload.OrderID, delay)
}

// EnqueueBookingEvent 推送领域事件投递任务
func (c *Client) EnqueueBookingEvent(payload BookingEventPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewBookingEventTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{asynq.Queue(c.defaultQueue), asynq.MaxRetry(10)}
	if id := strings.TrimSpace(payload.Event.ID); id != "" {
		options = append(options, asynq.TaskID("booking_event:"+id))
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *Client) enqueueUnique(task *asynq.Task, taskID string, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	options := []asynq.Option{
		asynq.Queue(CriticalQueue),
		asynq.ProcessIn(delay),
		asynq.TaskID(taskID),
	}
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
