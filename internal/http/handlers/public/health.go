package public

import (
	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/models"

	"github.com/gin-gonic/gin"
)

// Health 健康检查，数据库不可达时返回 500
func (h *Handler) Health(c *gin.Context) {
	if models.DB != nil {
		sqlDB, err := models.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}
