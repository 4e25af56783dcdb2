package shared

import (
	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/i18n"
	"github.com/railbook-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, key, err)
	appErr.Message = i18n.T(i18n.ResolveLocale(c), appErr.Key)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorWithData 返回带附加数据的国际化错误响应。
func RespondErrorWithData(c *gin.Context, code int, key string, data interface{}) {
	locale := i18n.ResolveLocale(c)
	response.ErrorWithData(c, code, i18n.T(locale, key), data)
}
