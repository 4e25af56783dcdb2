package i18n

var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":                "请求参数错误",
		"error.unauthorized":               "未登录或登录已失效",
		"error.user_id_invalid":            "用户标识无效",
		"error.too_many_requests":          "请求过于频繁，请稍后再试",
		"error.jwt_secret_missing":         "服务端未配置登录密钥",
		"error.auth_header_missing":        "缺少 Authorization 请求头",
		"error.auth_header_invalid":        "Authorization 请求头格式错误",
		"error.token_invalid":              "登录凭证无效或已过期",
		"error.rate_limited":               "请求过于频繁，请 %d 秒后再试",
		"error.rate_limit_unavailable":     "限流服务暂不可用",
		"error.internal":                   "服务器内部错误",
		"error.not_found":                  "资源不存在",
		"error.validation_failed":          "请求参数校验失败",
		"error.certificate_invalid":        "证件号码格式错误",
		"error.passenger_count_mismatch":   "乘车人数与锁定席位数不一致",
		"error.pricing_invalid":            "票价参数无效",
		"error.inventory_insufficient":     "余票不足",
		"error.inventory_timeout":          "余票查询超时，请稍后重试",
		"error.inventory_unavailable":      "余票服务暂不可用",
		"error.seat_lock_not_found":        "锁座记录不存在",
		"error.seat_lock_expired":          "锁座已过期，请重新选座",
		"error.seat_lock_consumed":         "锁座已被使用",
		"error.seat_lock_create_failed":    "锁座失败",
		"error.order_not_found":            "订单不存在",
		"error.order_create_failed":        "订单创建失败",
		"error.order_cancel_failed":        "订单取消失败",
		"error.order_fetch_failed":         "订单查询失败",
		"error.order_status_invalid":       "订单状态不允许该操作",
		"error.order_not_payable":          "订单当前不可支付",
		"error.order_no_longer_payable":    "订单已超过支付时限",
		"error.payment_not_found":          "支付记录不存在",
		"error.payment_channel_invalid":    "不支持的支付渠道",
		"error.payment_amount_mismatch":    "支付金额与订单金额不一致",
		"error.payment_already_succeeded":  "订单已支付成功",
		"error.payment_create_failed":      "发起支付失败",
		"error.payment_provider_failed":    "支付渠道请求失败",
		"error.payment_signature_invalid":  "回调签名校验失败",
		"error.payment_callback_malformed": "回调参数不完整",
		"error.payment_callback_failed":    "支付回调处理失败",
	},
	LocaleEN: {
		"error.bad_request":                "Invalid request",
		"error.unauthorized":               "Unauthorized",
		"error.user_id_invalid":            "Invalid user id",
		"error.too_many_requests":          "Too many requests, please retry later",
		"error.jwt_secret_missing":         "JWT secret is not configured",
		"error.auth_header_missing":        "Missing Authorization header",
		"error.auth_header_invalid":        "Malformed Authorization header",
		"error.token_invalid":              "Token is invalid or expired",
		"error.rate_limited":               "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":     "Rate limiter unavailable",
		"error.internal":                   "Internal server error",
		"error.not_found":                  "Resource not found",
		"error.validation_failed":          "Validation failed",
		"error.certificate_invalid":        "Invalid certificate number",
		"error.passenger_count_mismatch":   "Passenger count does not match locked seats",
		"error.pricing_invalid":            "Invalid pricing input",
		"error.inventory_insufficient":     "Insufficient inventory",
		"error.inventory_timeout":          "Inventory check timed out, please retry",
		"error.inventory_unavailable":      "Inventory service unavailable",
		"error.seat_lock_not_found":        "Seat lock not found",
		"error.seat_lock_expired":          "Seat lock expired",
		"error.seat_lock_consumed":         "Seat lock already consumed",
		"error.seat_lock_create_failed":    "Failed to lock seats",
		"error.order_not_found":            "Order not found",
		"error.order_create_failed":        "Failed to create order",
		"error.order_cancel_failed":        "Failed to cancel order",
		"error.order_fetch_failed":         "Failed to fetch orders",
		"error.order_status_invalid":       "Order status does not allow this operation",
		"error.order_not_payable":          "Order is not payable",
		"error.order_no_longer_payable":    "Order payment window has closed",
		"error.payment_not_found":          "Payment not found",
		"error.payment_channel_invalid":    "Unsupported payment channel",
		"error.payment_amount_mismatch":    "Payment amount does not match order total",
		"error.payment_already_succeeded":  "Order has already been paid",
		"error.payment_create_failed":      "Failed to initiate payment",
		"error.payment_provider_failed":    "Payment provider request failed",
		"error.payment_signature_invalid":  "Callback signature invalid",
		"error.payment_callback_malformed": "Callback payload malformed",
		"error.payment_callback_failed":    "Failed to process payment callback",
	},
}
