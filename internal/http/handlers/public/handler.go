package public

import "github.com/railbook-next/internal/provider"

// Handler 用户侧订票接口处理器
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
