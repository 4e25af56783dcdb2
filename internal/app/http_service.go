package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/railbook-next/internal/config"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// HTTPService 订票 API 的 HTTP 服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 按 server 配置创建 HTTP 服务，未配置的超时取默认值
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: secondsOr(cfg.ReadHeaderTimeoutSeconds, defaultReadHeaderTimeout),
			WriteTimeout:      secondsOr(cfg.WriteTimeoutSeconds, defaultWriteTimeout),
			IdleTimeout:       secondsOr(cfg.IdleTimeoutSeconds, defaultIdleTimeout),
		},
	}
}

func secondsOr(value int, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return "http"
}

// Start 监听并阻塞到服务关闭
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待在途请求结束
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
