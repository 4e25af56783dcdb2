package shared

import (
	"strings"

	"github.com/railbook-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextStringWithKeys 从上下文读取字符串值并统一处理错误响应。
func GetContextStringWithKeys(c *gin.Context, key, invalidKey string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return "", false
	}
	id, ok := value.(string)
	if !ok {
		RespondError(c, response.CodeInternal, invalidKey, nil)
		return "", false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		RespondError(c, response.CodeUnauthorized, invalidKey, nil)
		return "", false
	}
	return id, true
}
