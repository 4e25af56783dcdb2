package worker

import (
	"context"
	"sync"
	"time"

	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/service"
)

const (
	defaultSweepInterval  = 10 * time.Second
	defaultSweepBatchSize = 200
)

// DueLockExpirer 批量过期到期锁座
type DueLockExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (service.SweepResult, error)
	Now() time.Time
}

// DueOrderExpirer 批量过期超时订单
type DueOrderExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (service.SweepResult, error)
}

// SweeperOptions 扫描参数
type SweeperOptions struct {
	Interval  time.Duration
	BatchSize int
}

// Sweeper 周期扫描到期锁座与超时订单，单条失败只记录日志
type Sweeper struct {
	name   string
	locks  DueLockExpirer
	orders DueOrderExpirer
	opts   SweeperOptions

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper 创建扫描服务
func NewSweeper(locks DueLockExpirer, orders DueOrderExpirer, opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSweepBatchSize
	}
	return &Sweeper{name: "sweeper", locks: locks, orders: orders, opts: opts}
}

// Name 服务名称
func (s *Sweeper) Name() string {
	if s == nil || s.name == "" {
		return "sweeper"
	}
	return s.name
}

// Start 立即执行一次，之后按间隔执行，直到 ctx 结束或 Stop
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	logger.Infow("sweeper_started", "interval", s.opts.Interval.String(), "batch_size", s.opts.BatchSize)
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infow("sweeper_stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止扫描并等待当前一轮结束
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 执行一轮扫描：先过期锁座，再过期订单
func (s *Sweeper) RunOnce(ctx context.Context) (service.SweepResult, service.SweepResult) {
	var lockResult, orderResult service.SweepResult
	if s.locks == nil {
		return lockResult, orderResult
	}
	now := s.locks.Now()

	lockResult, err := s.locks.ExpireDue(ctx, now, s.opts.BatchSize)
	if err != nil {
		logger.Warnw("sweeper_lock_pass_failed", "error", err)
	}
	if s.orders != nil {
		orderResult, err = s.orders.ExpireDue(ctx, now, s.opts.BatchSize)
		if err != nil {
			logger.Warnw("sweeper_order_pass_failed", "error", err)
		}
	}
	if lockResult.Scanned > 0 || orderResult.Scanned > 0 {
		logger.Infow("sweeper_pass_done",
			"locks_expired", lockResult.Expired,
			"locks_failed", lockResult.Failed,
			"orders_expired", orderResult.Expired,
			"orders_failed", orderResult.Failed,
		)
	}
	return lockResult, orderResult
}
