package public

import (
	"strings"

	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest 发起支付请求
type InitiatePaymentRequest struct {
	OrderID string          `json:"order_id" binding:"required"`
	Channel string          `json:"channel" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentCallbackRequest 渠道异步通知报文
type PaymentCallbackRequest struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// 回调签名请求头，微信渠道同时兼容 Wechatpay-* 头
const (
	headerCallbackSignature = "X-Callback-Signature"
	headerCallbackTimestamp = "X-Callback-Timestamp"
	headerCallbackNonce     = "X-Callback-Nonce"
	headerCallbackSerial    = "X-Callback-Serial"

	headerWechatSignature = "Wechatpay-Signature"
	headerWechatTimestamp = "Wechatpay-Timestamp"
	headerWechatNonce     = "Wechatpay-Nonce"
	headerWechatSerial    = "Wechatpay-Serial"
)

// InitiatePayment 为订单发起支付
func (h *Handler) InitiatePayment(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	payment, err := h.PaymentService.Initiate(c.Request.Context(), service.InitiatePaymentInput{
		UserID:  uid,
		OrderID: req.OrderID,
		Channel: req.Channel,
		Amount:  req.Amount,
	})
	if err != nil {
		respondPaymentInitiateError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment_id":       payment.ID,
		"order_id":         payment.OrderID,
		"channel":          payment.Channel,
		"interaction_mode": payment.InteractionMode,
		"redirect_url":     payment.RedirectURL,
		"amount":           payment.Amount,
		"currency":         payment.Currency,
		"status":           payment.Status,
	})
}

// PaymentCallback 处理渠道异步通知，重复通知同样返回成功
func (h *Handler) PaymentCallback(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payment_callback_malformed", err)
		return
	}

	result, err := h.PaymentService.HandleCallback(c.Request.Context(), service.PaymentCallbackInput{
		PaymentID:     req.PaymentID,
		OrderID:       req.OrderID,
		Status:        req.Status,
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Signature:     firstHeader(c, headerCallbackSignature, headerWechatSignature),
		Timestamp:     firstHeader(c, headerCallbackTimestamp, headerWechatTimestamp),
		Nonce:         firstHeader(c, headerCallbackNonce, headerWechatNonce),
		SerialNo:      firstHeader(c, headerCallbackSerial, headerWechatSerial),
	})
	if err != nil {
		requestLog(c).Warnw("payment_callback_rejected",
			"payment_id", req.PaymentID,
			"order_id", req.OrderID,
			"transaction_id", req.TransactionID,
			"error", err,
		)
		respondPaymentCallbackError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment_id": result.Payment.ID,
		"status":     result.Payment.Status,
		"duplicate":  result.Duplicate,
		"order_paid": result.OrderPaid,
	})
}

// GetPaymentStatus 查询支付状态
func (h *Handler) GetPaymentStatus(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	payment, err := h.PaymentService.GetForUser(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondPaymentQueryError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
		"paid_at":    payment.PaidAt,
	})
}

// ListOrderPayments 订单下的支付记录
func (h *Handler) ListOrderPayments(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	payments, err := h.PaymentService.ListByOrder(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondOrderQueryError(c, err, "error.order_fetch_failed")
		return
	}

	response.Success(c, payments)
}

func firstHeader(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(c.GetHeader(key)); value != "" {
			return value
		}
	}
	return ""
}
