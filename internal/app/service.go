package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 可独立启停的运行单元：HTTP 接口、过期扫描、异步任务消费
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 服务运行器
type Runner struct {
	services []Service
	cleanups []func()
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// AddCleanup 注册全部服务停止后执行的清理函数，按注册逆序执行
func (r *Runner) AddCleanup(fn func()) {
	if r == nil || fn == nil {
		return
	}
	r.cleanups = append(r.cleanups, fn)
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 启动全部服务，任一服务退出或 ctx 取消后统一停止。
// 正常取消返回 nil；停止失败与启动失败一并返回。
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(r.services))
	for _, svc := range r.services {
		go r.start(ctx, svc, log, errCh)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}
	cancel()

	stopErr := r.stopAll(stopTimeout, log)
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		r.cleanups[i]()
	}
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, stopErr)
}

func (r *Runner) start(ctx context.Context, svc Service, log *zap.SugaredLogger, errCh chan<- error) {
	if svc == nil {
		errCh <- errors.New("service is nil")
		return
	}
	name := svc.Name()
	if log != nil {
		log.Infow("service_start", "service", name)
	}
	errCh <- svc.Start(ctx)
	if log != nil {
		log.Infow("service_exit", "service", name)
	}
}

// stopAll 按注册逆序停止服务，共用一个超时
func (r *Runner) stopAll(stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	var errs []error
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if svc == nil {
			continue
		}
		startedAt := time.Now()
		if err := svc.Stop(stopCtx); err != nil {
			if log != nil {
				log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
			}
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
			continue
		}
		if log != nil {
			log.Infow("service_stopped", "service", svc.Name(), "elapsed_ms", time.Since(startedAt).Milliseconds())
		}
	}
	return errors.Join(errs...)
}
