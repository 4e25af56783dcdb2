package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/payment/channel"
	"github.com/railbook-next/internal/payment/signature"
	"github.com/railbook-next/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const paymentSupersededReason = "superseded by a newer payment"

// PaymentOptions 支付服务参数
type PaymentOptions struct {
	NotifyURL string
	ReturnURL string
	Clock     clock.Clock
	IDs       clock.IDGenerator
}

// PaymentService 支付服务
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	orderRepo   repository.OrderRepository
	channels    *channel.Registry
	verifier    *signature.Router
	emitter     *BookingEventEmitter
	opts        PaymentOptions
}

// NewPaymentService 创建支付服务
func NewPaymentService(paymentRepo repository.PaymentRepository, orderRepo repository.OrderRepository, channels *channel.Registry, verifier *signature.Router, emitter *BookingEventEmitter, opts PaymentOptions) *PaymentService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.IDs == nil {
		opts.IDs = clock.UUIDGenerator{}
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		channels:    channels,
		verifier:    verifier,
		emitter:     emitter,
		opts:        opts,
	}
}

// InitiatePaymentInput 发起支付输入
type InitiatePaymentInput struct {
	UserID  string
	OrderID string
	Channel string
	Amount  decimal.Decimal
}

func paymentLogger(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// Initiate 为待支付订单创建支付单并生成跳转/二维码目标。
// 同渠道同金额的未终结支付单直接复用，其余未终结支付单置为失败，保证同一订单至多一笔未终结支付。
func (s *PaymentService) Initiate(ctx context.Context, input InitiatePaymentInput) (*models.PaymentOrder, error) {
	userID := strings.TrimSpace(input.UserID)
	orderID := strings.TrimSpace(input.OrderID)
	channelCode := channel.NormalizeChannel(input.Channel)

	verr := NewValidationError()
	if userID == "" {
		verr.Add("user_id", "required")
	}
	if orderID == "" {
		verr.Add("order_id", "required")
	}
	if channelCode == "" {
		verr.Add("channel", "required")
	}
	if !input.Amount.IsPositive() {
		verr.Add("amount", "must be positive")
	}
	if err := verr.errOrNil(); err != nil {
		return nil, err
	}
	if !channel.IsSupportedChannel(channelCode) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannel, channelCode)
	}
	provider, err := s.channels.Get(channelCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChannel, channelCode)
	}

	log := paymentLogger("order_id", orderID, "user_id", userID, "channel", channelCode)
	amount := models.NewMoneyFromDecimal(input.Amount)
	now := s.opts.Clock.Now()
	var payment *models.PaymentOrder
	reused := false

	err = models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		paymentRepo := s.paymentRepo.WithTx(tx)

		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil || order.UserID != userID {
			return ErrOrderNotFound
		}
		succeeded, err := paymentRepo.GetSuccessByOrder(order.ID)
		if err != nil {
			return err
		}
		if succeeded != nil {
			return ErrPaymentAlreadySucceeded
		}
		if order.Status != constants.OrderStatusPendingPayment || clock.Passed(now, order.PaymentDeadline) {
			return ErrOrderNotPayable
		}
		if !order.TotalPrice.Equal(amount) {
			return ErrAmountMismatch
		}

		pending, err := paymentRepo.ListNonTerminalByOrder(order.ID)
		if err != nil {
			return err
		}
		for i := range pending {
			existing := pending[i]
			if payment == nil && canReusePayment(&existing, channelCode, amount) {
				payment = &existing
				reused = true
				continue
			}
			existing.Status = constants.PaymentStatusFailed
			existing.FailureReason = paymentSupersededReason
			existing.UpdatedAt = now
			if err := paymentRepo.UpdateWithVersion(&existing); err != nil {
				log.Errorw("payment_supersede_failed", "payment_id", existing.ID, "error", err)
				return ErrPaymentUpdateFailed
			}
			log.Infow("payment_superseded", "payment_id", existing.ID, "previous_channel", existing.Channel)
		}
		if reused {
			return nil
		}

		payment = &models.PaymentOrder{
			ID:              s.opts.IDs.NewID(clock.PrefixPayment),
			OrderID:         order.ID,
			UserID:          order.UserID,
			Channel:         channelCode,
			InteractionMode: provider.InteractionMode(),
			Amount:          amount,
			Currency:        order.Currency,
			Status:          constants.PaymentStatusInitiated,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := paymentRepo.Create(payment); err != nil {
			log.Errorw("payment_create_failed", "payment_id", payment.ID, "error", err)
			return ErrPaymentCreateFailed
		}

		redirect, err := provider.BuildRedirect(ctx, channel.RedirectRequest{
			PaymentID: payment.ID,
			OrderID:   order.ID,
			Amount:    amount.Decimal,
			Currency:  order.Currency,
			Subject:   paymentSubject(order),
			NotifyURL: s.opts.NotifyURL,
			ReturnURL: s.opts.ReturnURL,
		})
		if err != nil {
			log.Errorw("payment_redirect_build_failed", "payment_id", payment.ID, "error", err)
			return fmt.Errorf("%w: %v", ErrPaymentProviderFailed, err)
		}
		payment.Status = constants.PaymentStatusPending
		payment.InteractionMode = redirect.InteractionMode
		payment.RedirectURL = redirect.URL
		payment.UpdatedAt = now
		if err := paymentRepo.UpdateWithVersion(payment); err != nil {
			log.Errorw("payment_pending_update_failed", "payment_id", payment.ID, "error", err)
			return ErrPaymentUpdateFailed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infow("payment_initiated",
		"payment_id", payment.ID,
		"amount", payment.Amount.String(),
		"interaction_mode", payment.InteractionMode,
		"reused", reused,
	)
	return payment, nil
}

// canReusePayment 已生成跳转目标的同渠道同金额支付单可复用
func canReusePayment(payment *models.PaymentOrder, channelCode string, amount models.Money) bool {
	return payment.Status == constants.PaymentStatusPending &&
		payment.Channel == channelCode &&
		payment.Amount.Equal(amount) &&
		strings.TrimSpace(payment.RedirectURL) != ""
}

func paymentSubject(order *models.Order) string {
	parts := []string{"火车票"}
	if order.TrainID != "" {
		parts = append(parts, order.TrainID)
	}
	if order.TravelDate != "" {
		parts = append(parts, order.TravelDate)
	}
	return strings.Join(parts, " ")
}

// Status 查询支付状态
func (s *PaymentService) Status(ctx context.Context, paymentID string) (string, error) {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return payment.Status, nil
}

// Get 获取支付单
func (s *PaymentService) Get(ctx context.Context, paymentID string) (*models.PaymentOrder, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetForUser 获取用户自己的支付单
func (s *PaymentService) GetForUser(ctx context.Context, userID, paymentID string) (*models.PaymentOrder, error) {
	payment, err := s.paymentRepo.GetByIDAndUser(paymentID, userID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListByOrder 订单下的全部支付单（新的在前）
func (s *PaymentService) ListByOrder(ctx context.Context, userID, orderID string) ([]models.PaymentOrder, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	payments, err := s.paymentRepo.ListByOrderID(order.ID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.PaymentOrder{}
	}
	return payments, nil
}

// Now 当前时间
func (s *PaymentService) Now() time.Time {
	return s.opts.Clock.Now()
}

func isVersionConflict(err error) bool {
	return errors.Is(err, repository.ErrPaymentVersionConflict)
}
