package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/queue"
	"github.com/railbook-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPaymentWindow = 30 * time.Minute
	defaultOrderPageSize = 10
)

// OrderOptions 订单服务参数
type OrderOptions struct {
	PaymentWindow time.Duration
	Currency      string
	PageSize      int
	Clock         clock.Clock
	IDs           clock.IDGenerator
}

// OrderService 订单服务
type OrderService struct {
	orderRepo   repository.OrderRepository
	lockService *SeatLockService
	pricing     *PricingEngine
	queueClient *queue.Client
	emitter     *BookingEventEmitter
	opts        OrderOptions
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, lockService *SeatLockService, pricing *PricingEngine, queueClient *queue.Client, emitter *BookingEventEmitter, opts OrderOptions) *OrderService {
	if pricing == nil {
		pricing = NewPricingEngine()
	}
	if opts.PaymentWindow <= 0 {
		opts.PaymentWindow = defaultPaymentWindow
	}
	opts.Currency = strings.ToUpper(strings.TrimSpace(opts.Currency))
	if opts.Currency == "" {
		opts.Currency = "CNY"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultOrderPageSize
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.IDs == nil {
		opts.IDs = clock.UUIDGenerator{}
	}
	return &OrderService{
		orderRepo:   orderRepo,
		lockService: lockService,
		pricing:     pricing,
		queueClient: queueClient,
		emitter:     emitter,
		opts:        opts,
	}
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID       string
	LockID       string
	Passengers   []models.Passenger
	UnitPrice    decimal.Decimal
	InsuranceFee decimal.Decimal
	Route        string
}

// ListOrdersInput 订单列表查询条件
type ListOrdersInput struct {
	Status      string
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// OrderPage 订单分页结果
type OrderPage struct {
	Items    []models.Order
	Total    int64
	Page     int
	PageSize int
}

// Create 校验乘车人、计价并在同一事务内消费锁座生成待支付订单
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	userID := strings.TrimSpace(input.UserID)
	lockID := strings.TrimSpace(input.LockID)
	verr := NewValidationError()
	if userID == "" {
		verr.Add("user_id", "required")
	}
	if lockID == "" {
		verr.Add("lock_id", "required")
	}
	if len(input.Passengers) == 0 {
		verr.Add("passengers", "required")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}
	passengers, err := normalizePassengers(input.Passengers)
	if err != nil {
		return nil, err
	}
	total, err := s.pricing.Price(input.UnitPrice, len(passengers), input.InsuranceFee)
	if err != nil {
		return nil, err
	}
	// 各支付渠道均不接受零金额，零元订单无法支付
	if !total.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be greater than zero", ErrInvalidPricingInput)
	}

	now := s.opts.Clock.Now()
	order := &models.Order{
		ID:              s.opts.IDs.NewID(clock.PrefixOrder),
		UserID:          userID,
		LockID:          &lockID,
		Route:           strings.TrimSpace(input.Route),
		Passengers:      passengers,
		UnitPrice:       models.NewMoneyFromDecimal(input.UnitPrice),
		InsuranceFee:    models.NewMoneyFromDecimal(input.InsuranceFee),
		TotalPrice:      total,
		Currency:        s.opts.Currency,
		Status:          constants.OrderStatusPendingPayment,
		PaymentDeadline: clock.Deadline(now, s.opts.PaymentWindow, defaultPaymentWindow),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock, err := s.lockService.ConsumeTx(tx, lockID, userID, order.ID)
		if err != nil {
			return err
		}
		if lock.SeatCount != len(passengers) {
			return ErrPassengerCountMismatch
		}
		order.TrainID = lock.TrainID
		order.TravelDate = lock.TravelDate
		order.SeatClass = lock.SeatClass
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			logger.Errorw("order_create_failed", "order_id", order.ID, "lock_id", lockID, "error", err)
			return ErrOrderCreateFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.queueClient != nil {
		delay := clock.Remaining(now, order.PaymentDeadline) + time.Second
		if err := s.queueClient.EnqueueOrderExpire(queue.OrderExpirePayload{OrderID: order.ID}, delay); err != nil {
			logger.Warnw("order_enqueue_expire_failed", "order_id", order.ID, "error", err)
		}
	}
	s.emitter.Emit(ctx, events.NewEvent(constants.EventOrderCreated, order.ID, order.UserID, now, map[string]interface{}{
		"lock_id":          lockID,
		"train_id":         order.TrainID,
		"travel_date":      order.TravelDate,
		"seat_class":       order.SeatClass,
		"seat_count":       order.SeatCount(),
		"total_price":      order.TotalPrice.String(),
		"currency":         order.Currency,
		"payment_deadline": order.PaymentDeadline,
	}))
	logger.Infow("order_created",
		"order_id", order.ID,
		"user_id", order.UserID,
		"lock_id", lockID,
		"total_price", order.TotalPrice.String(),
		"payment_deadline", order.PaymentDeadline,
	)
	return order, nil
}

// Cancel 用户取消待支付订单，与过期扫描竞争时失败方得到 ErrInvalidTransition
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.GetForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return nil, ErrInvalidTransition
	}
	now := s.opts.Clock.Now()
	affected, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPendingPayment, constants.OrderStatusCancelled, map[string]interface{}{
		"cancelled_at": now,
		"updated_at":   now,
	})
	if err != nil {
		logger.Errorw("order_cancel_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	if affected == 0 {
		return nil, ErrInvalidTransition
	}
	order.Status = constants.OrderStatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now

	s.releaseSeats(ctx, order, constants.EventOrderCancelled, now)
	logger.Infow("order_cancelled", "order_id", order.ID, "user_id", order.UserID)
	return order, nil
}

// List 用户订单列表：按创建时间倒序、ID 升序，页码从 1 开始
func (s *OrderService) List(ctx context.Context, userID string, input ListOrdersInput) (*OrderPage, error) {
	userID = strings.TrimSpace(userID)
	verr := NewValidationError()
	if userID == "" {
		verr.Add("user_id", "required")
	}
	status, ok := normalizeOrderStatus(input.Status)
	if !ok {
		verr.Add("status", "unsupported")
	}
	if input.CreatedFrom != nil && input.CreatedTo != nil && input.CreatedFrom.After(*input.CreatedTo) {
		verr.Add("created_from", "must not be after created_to")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}

	page, pageSize := repository.NormalizePage(input.Page, input.PageSize, s.opts.PageSize)

	orders, total, err := s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      userID,
		Status:      status,
		Keyword:     strings.TrimSpace(input.Keyword),
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
	})
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{Items: orders, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get 获取订单
func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetForUser 获取用户自己的订单
func (s *OrderService) GetForUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Expire 支付截止时间已过的待支付订单置为过期；终态或未到期时跳过
func (s *OrderService) Expire(ctx context.Context, orderID string) (bool, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.Status != constants.OrderStatusPendingPayment {
		return false, nil
	}
	now := s.opts.Clock.Now()
	if !clock.Passed(now, order.PaymentDeadline) {
		return false, nil
	}
	affected, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPendingPayment, constants.OrderStatusExpired, map[string]interface{}{
		"expired_at": now,
		"updated_at": now,
	})
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}
	order.Status = constants.OrderStatusExpired
	order.ExpiredAt = &now
	s.releaseSeats(ctx, order, constants.EventOrderExpired, now)
	logger.Infow("order_expired", "order_id", order.ID, "user_id", order.UserID, "payment_deadline", order.PaymentDeadline)
	return true, nil
}

// ExpireDue 批量过期超时订单，单条失败记录日志后继续
func (s *OrderService) ExpireDue(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	var result SweepResult
	orders, err := s.orderRepo.ListDuePending(now, limit)
	if err != nil {
		return result, err
	}
	result.Scanned = len(orders)
	for _, order := range orders {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		expired, err := s.Expire(ctx, order.ID)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				result.Skipped++
				continue
			}
			result.Failed++
			logger.Warnw("sweeper_order_expire_failed", "order_id", order.ID, "error", err)
			continue
		}
		if expired {
			result.Expired++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// releaseSeats 订单取消或过期后通知余票协作方释放座位，锁座本身不恢复
func (s *OrderService) releaseSeats(ctx context.Context, order *models.Order, eventType string, now time.Time) {
	if s.lockService != nil {
		s.lockService.InvalidateInventory(ctx, inventoryQueryOf(order))
	}
	s.emitter.Emit(ctx, events.NewEvent(eventType, order.ID, order.UserID, now, seatReleaseEventData(order)))
}
