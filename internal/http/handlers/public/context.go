package public

import (
	handlershared "github.com/railbook-next/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getUserID(c *gin.Context) (string, bool) {
	return handlershared.GetContextStringWithKeys(c, "user_id", "error.user_id_invalid")
}
