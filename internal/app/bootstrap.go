package app

import (
	"errors"
	"time"

	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/provider"
	"github.com/railbook-next/internal/router"
	"github.com/railbook-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !IsValidMode(mode) {
		return nil, errors.New("unknown run mode: " + mode)
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		httpService := NewHTTPService(cfg.Server, engine)
		services = append(services, httpService)
	}

	if mode == ModeAll || mode == ModeWorker {
		// 过期扫描兜底，不依赖队列
		sweeper := worker.NewSweeper(container.SeatLockService, container.OrderService, worker.SweeperOptions{
			Interval:  time.Duration(cfg.Booking.SweepIntervalSeconds) * time.Second,
			BatchSize: cfg.Booking.SweepBatchSize,
		})
		services = append(services, sweeper)

		// 延时过期任务与事件投递
		if cfg.Queue.Enabled {
			consumer := worker.NewConsumer(container)
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				container.Close()
				return nil, err
			}
			services = append(services, workerService)
		} else {
			logger.Warnw("app_queue_disabled", "mode", mode)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, errors.New("no services initialized (check mode and config)")
	}

	runner := NewRunner(services...)
	runner.AddCleanup(container.Close)
	return runner, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
