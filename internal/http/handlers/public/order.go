package public

import (
	"strconv"
	"strings"
	"time"

	"github.com/railbook-next/internal/constants"
	handlershared "github.com/railbook-next/internal/http/handlers/shared"
	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PassengerRequest 乘车人
type PassengerRequest struct {
	Name            string `json:"name"`
	CertificateID   string `json:"certificate_id"`
	CertificateType string `json:"certificate_type"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	LockID       string             `json:"lock_id" binding:"required"`
	Passengers   []PassengerRequest `json:"passengers"`
	UnitPrice    decimal.Decimal    `json:"unit_price"`
	InsuranceFee decimal.Decimal    `json:"insurance_fee"`
	Route        string             `json:"route"`
}

// CreateOrder 消费锁座生成待支付订单
func (h *Handler) CreateOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	passengers := make([]models.Passenger, 0, len(req.Passengers))
	for _, item := range req.Passengers {
		passengers = append(passengers, models.Passenger{
			Name:            item.Name,
			CertificateID:   item.CertificateID,
			CertificateType: item.CertificateType,
		})
	}

	order, err := h.OrderService.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:       uid,
		LockID:       req.LockID,
		Passengers:   passengers,
		UnitPrice:    req.UnitPrice,
		InsuranceFee: req.InsuranceFee,
		Route:        req.Route,
	})
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}

	response.Created(c, order)
}

// ListOrders 获取订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	page, err := parseOptionalInt(c.Query("page"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdFrom, err := parseTimeQuery(c.Query("created_from"), false)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdTo, err := parseTimeQuery(c.Query("created_to"), true)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	result, err := h.OrderService.List(c.Request.Context(), uid, service.ListOrdersInput{
		Status:      c.Query("status"),
		Keyword:     c.Query("keyword"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		respondOrderQueryError(c, err, "error.order_fetch_failed")
		return
	}

	response.SuccessWithPage(c, result.Items, handlershared.BuildPagination(result.Page, result.PageSize, result.Total))
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	order, err := h.OrderService.GetForUser(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondOrderQueryError(c, err, "error.order_fetch_failed")
		return
	}

	response.Success(c, order)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	order, err := h.OrderService.Cancel(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondOrderQueryError(c, err, "error.order_cancel_failed")
		return
	}

	response.Success(c, order)
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// parseTimeQuery 支持 RFC3339 与 YYYY-MM-DD，日期作为上界时取当天结束
func parseTimeQuery(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(constants.TravelDateLayout, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
