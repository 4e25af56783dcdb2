package response

import "net/http"

// 业务状态码与 HTTP 状态码保持一致
const (
	CodeOK              = 0
	CodeBadRequest      = http.StatusBadRequest
	CodeUnauthorized    = http.StatusUnauthorized
	CodeForbidden       = http.StatusForbidden
	CodeNotFound        = http.StatusNotFound
	CodeConflict        = http.StatusConflict
	CodeGone            = http.StatusGone
	CodeTooManyRequests = http.StatusTooManyRequests
	CodeInternal        = http.StatusInternalServerError
	CodeBadGateway      = http.StatusBadGateway
	CodeGatewayTimeout  = http.StatusGatewayTimeout
)

// HTTPStatus 将业务码换算为 HTTP 状态码，非错误码一律按 200 处理
func HTTPStatus(code int) int {
	if code >= 400 && code < 600 {
		return code
	}
	return http.StatusOK
}
