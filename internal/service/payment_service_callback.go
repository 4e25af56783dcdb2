package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/payment/signature"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const callbackVersionRetries = 3

// PaymentCallbackInput 支付回调输入
type PaymentCallbackInput struct {
	PaymentID     string
	OrderID       string
	Status        string
	TransactionID string
	Amount        decimal.Decimal
	Signature     string
	Timestamp     string
	Nonce         string
	SerialNo      string
}

// SignatureBody 参与签名的回调报文
func (in PaymentCallbackInput) SignatureBody() string {
	return signature.CanonicalBody(map[string]string{
		"payment_id":     strings.TrimSpace(in.PaymentID),
		"order_id":       strings.TrimSpace(in.OrderID),
		"status":         strings.TrimSpace(in.Status),
		"transaction_id": strings.TrimSpace(in.TransactionID),
		"amount":         in.Amount.StringFixed(2),
	})
}

// PaymentCallbackResult 回调处理结果
type PaymentCallbackResult struct {
	Payment   *models.PaymentOrder
	Duplicate bool
	OrderPaid bool
	Revived   bool
}

// normalizeCallbackStatus 渠道回调状态归一为 success / failed
func normalizeCallbackStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "succeeded", "paid", "trade_success":
		return constants.PaymentStatusSuccess, true
	case "failed", "fail", "closed", "trade_closed":
		return constants.PaymentStatusFailed, true
	default:
		return "", false
	}
}

// HandleCallback 处理渠道异步通知。
// 同一流水号重复通知直接返回成功；终态支付单只记录流水号不回退状态，
// 被顶替的支付单收到成功通知时例外，仍按成功入账；
// 支付成功但订单已过截止时间时支付单仍记为成功并返回 ErrOrderNoLongerPayable。
func (s *PaymentService) HandleCallback(ctx context.Context, input PaymentCallbackInput) (*PaymentCallbackResult, error) {
	paymentID := strings.TrimSpace(input.PaymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment_id is required", ErrCallbackMalformed)
	}
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	log := paymentLogger("payment_id", payment.ID, "order_id", payment.OrderID, "channel", payment.Channel)
	if err := s.verifier.Verify(ctx, payment.Channel, signature.CallbackSignature{
		Body:      input.SignatureBody(),
		Signature: input.Signature,
		Timestamp: input.Timestamp,
		Nonce:     input.Nonce,
		SerialNo:  input.SerialNo,
	}); err != nil {
		log.Warnw("payment_callback_signature_invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	orderID := strings.TrimSpace(input.OrderID)
	transactionID := strings.TrimSpace(input.TransactionID)
	status, ok := normalizeCallbackStatus(input.Status)
	switch {
	case orderID == "" || orderID != payment.OrderID:
		return nil, fmt.Errorf("%w: order_id mismatch", ErrCallbackMalformed)
	case !ok:
		return nil, fmt.Errorf("%w: unknown status %q", ErrCallbackMalformed, input.Status)
	case transactionID == "":
		return nil, fmt.Errorf("%w: transaction_id is required", ErrCallbackMalformed)
	}
	if !payment.Amount.Equal(models.NewMoneyFromDecimal(input.Amount)) {
		log.Warnw("payment_callback_amount_mismatch", "expected", payment.Amount.String(), "actual", input.Amount.StringFixed(2))
		return nil, ErrAmountMismatch
	}

	var (
		result          *PaymentCallbackResult
		order           *models.Order
		noLongerPayable bool
		transitioned    bool
	)
	for attempt := 1; attempt <= callbackVersionRetries; attempt++ {
		result, order, noLongerPayable, transitioned, err = s.applyCallback(ctx, paymentID, transactionID, status)
		if err == nil || !isVersionConflict(err) {
			break
		}
		log.Warnw("payment_callback_version_conflict", "attempt", attempt)
	}
	if err != nil {
		if isVersionConflict(err) {
			return nil, ErrPaymentUpdateFailed
		}
		return nil, err
	}

	if result.Duplicate {
		log.Infow("payment_callback_duplicate", "transaction_id", transactionID)
	}
	if result.Revived {
		log.Warnw("payment_callback_superseded_succeeded", "transaction_id", transactionID, "order_paid", result.OrderPaid)
	}
	if transitioned {
		s.emitPaymentEvents(ctx, result.Payment, order, result.OrderPaid)
		log.Infow("payment_callback_applied",
			"transaction_id", transactionID,
			"status", result.Payment.Status,
			"order_paid", result.OrderPaid,
		)
	}
	if noLongerPayable {
		log.Warnw("payment_callback_order_no_longer_payable", "transaction_id", transactionID)
		return result, ErrOrderNoLongerPayable
	}
	return result, nil
}

// applyCallback 行锁 + 版本号下更新支付单，成功时推进订单为已支付
func (s *PaymentService) applyCallback(ctx context.Context, paymentID, transactionID, status string) (*PaymentCallbackResult, *models.Order, bool, bool, error) {
	result := &PaymentCallbackResult{}
	var order *models.Order
	noLongerPayable := false
	transitioned := false
	now := s.opts.Clock.Now()

	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		payment, err := paymentRepo.GetByIDForUpdate(paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrPaymentNotFound
		}
		result.Payment = payment

		if payment.LastTransactionID == transactionID {
			result.Duplicate = true
			return nil
		}
		payment.LastTransactionID = transactionID
		payment.CallbackAt = &now
		payment.UpdatedAt = now

		revived := status == constants.PaymentStatusSuccess && isSupersededPayment(payment)
		if isTerminalPaymentStatus(payment.Status) && !revived {
			return paymentRepo.UpdateWithVersion(payment)
		}

		payment.Status = status
		if revived {
			// 被新支付单顶替的旧单渠道侧仍可能扣款成功，按成功处理
			payment.FailureReason = ""
			result.Revived = true
		}
		if status == constants.PaymentStatusFailed {
			payment.FailureReason = "channel reported failure"
			transitioned = true
			return paymentRepo.UpdateWithVersion(payment)
		}
		payment.PaidAt = &now
		if err := paymentRepo.UpdateWithVersion(payment); err != nil {
			return err
		}
		transitioned = true

		order, err = orderRepo.GetByIDForUpdate(payment.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != constants.OrderStatusPendingPayment || clock.Passed(now, order.PaymentDeadline) {
			noLongerPayable = true
			return nil
		}
		affected, err := orderRepo.TransitionStatus(order.ID, constants.OrderStatusPendingPayment, constants.OrderStatusPaid, map[string]interface{}{
			"paid_at":    now,
			"updated_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			noLongerPayable = true
			return nil
		}
		order.Status = constants.OrderStatusPaid
		order.PaidAt = &now
		order.UpdatedAt = now
		result.OrderPaid = true
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) || errors.Is(err, ErrOrderNotFound) || isVersionConflict(err) {
			return nil, nil, false, false, err
		}
		return nil, nil, false, false, fmt.Errorf("%w: %v", ErrPaymentUpdateFailed, err)
	}
	return result, order, noLongerPayable, transitioned, nil
}

func (s *PaymentService) emitPaymentEvents(ctx context.Context, payment *models.PaymentOrder, order *models.Order, orderPaid bool) {
	occurredAt := s.opts.Clock.Now()
	if payment.CallbackAt != nil {
		occurredAt = *payment.CallbackAt
	}
	eventType := constants.EventPaymentSucceeded
	if payment.Status == constants.PaymentStatusFailed {
		eventType = constants.EventPaymentFailed
	}
	s.emitter.Emit(ctx, events.NewEvent(eventType, payment.ID, payment.UserID, occurredAt, map[string]interface{}{
		"order_id":        payment.OrderID,
		"channel":         payment.Channel,
		"amount":          payment.Amount.String(),
		"currency":        payment.Currency,
		"transaction_id":  payment.LastTransactionID,
		"status":          payment.Status,
		"refund_required": payment.Status == constants.PaymentStatusSuccess && !orderPaid,
	}))
	if orderPaid && order != nil {
		s.emitter.Emit(ctx, events.NewEvent(constants.EventOrderPaid, order.ID, order.UserID, occurredAt, map[string]interface{}{
			"payment_id":  payment.ID,
			"train_id":    order.TrainID,
			"travel_date": order.TravelDate,
			"seat_class":  order.SeatClass,
			"seat_count":  order.SeatCount(),
			"total_price": order.TotalPrice.String(),
			"paid_at":     order.PaidAt,
		}))
	}
}
