package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestBookingEndToEnd(t *testing.T) {
	env := setupBookingServiceTest(t, "booking_e2e")
	ctx := context.Background()

	lock := env.acquireLock(t, "u-1", 2)
	order, err := env.orders.Create(ctx, CreateOrderInput{
		UserID:     "u-1",
		LockID:     lock.ID,
		Passengers: testPassengers(2),
		UnitPrice:  decimal.NewFromInt(200),
		Route:      "北京南-上海虹桥",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.TotalPrice.String() != "400.00" {
		t.Fatalf("unexpected total: %s", order.TotalPrice.String())
	}

	payment, err := env.payments.Initiate(ctx, InitiatePaymentInput{
		UserID:  "u-1",
		OrderID: order.ID,
		Channel: constants.PaymentChannelWechat,
		Amount:  decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("initiate payment failed: %v", err)
	}
	if payment.Status != constants.PaymentStatusPending || payment.InteractionMode != constants.PaymentInteractionQR {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if !strings.HasPrefix(payment.RedirectURL, "weixin://wxpay/bizpayurl?") {
		t.Fatalf("unexpected redirect url: %s", payment.RedirectURL)
	}

	env.clock.Advance(5 * time.Minute)
	result, err := env.payments.HandleCallback(ctx, env.successCallback(payment, "WX-TXN-1"))
	if err != nil {
		t.Fatalf("handle callback failed: %v", err)
	}
	if !result.OrderPaid || result.Duplicate {
		t.Fatalf("unexpected callback result: %+v", result)
	}

	status, err := env.payments.Status(ctx, payment.ID)
	if err != nil || status != constants.PaymentStatusSuccess {
		t.Fatalf("unexpected payment status: %s %v", status, err)
	}
	stored, err := env.orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if stored.Status != constants.OrderStatusPaid || stored.PaidAt == nil {
		t.Fatalf("order not paid: %+v", stored)
	}
	if env.publisher.count(constants.EventPaymentSucceeded) != 1 || env.publisher.count(constants.EventOrderPaid) != 1 {
		t.Fatalf("expected payment.succeeded and order.paid events")
	}

	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{
		UserID:  "u-1",
		OrderID: order.ID,
		Channel: constants.PaymentChannelAlipay,
		Amount:  decimal.NewFromInt(400),
	}); !errors.Is(err, ErrPaymentAlreadySucceeded) {
		t.Fatalf("expected payment already succeeded, got %v", err)
	}
}

func TestPaymentDuplicateCallbackPaysOnce(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_duplicate_callback")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "150")
	payment, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelAlipay, Amount: decimal.NewFromInt(150)})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	callback := env.successCallback(payment, "ALI-TXN-1")
	first, err := env.payments.HandleCallback(ctx, callback)
	if err != nil || !first.OrderPaid {
		t.Fatalf("first callback failed: %+v %v", first, err)
	}
	second, err := env.payments.HandleCallback(ctx, callback)
	if err != nil {
		t.Fatalf("duplicate callback should succeed, got %v", err)
	}
	if !second.Duplicate || second.OrderPaid {
		t.Fatalf("unexpected duplicate result: %+v", second)
	}
	if env.publisher.count(constants.EventOrderPaid) != 1 {
		t.Fatalf("order must be paid exactly once, got %d events", env.publisher.count(constants.EventOrderPaid))
	}
	stored, _ := env.payments.Get(ctx, payment.ID)
	if stored.Version != 2 {
		t.Fatalf("duplicate callback must not write, version=%d", stored.Version)
	}
}

func TestPaymentLateCallbackDoesNotPayOrder(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_late_callback")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "88.5")
	payment, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelBankCard, Amount: decimal.RequireFromString("88.50")})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	env.clock.Advance(31 * time.Minute)
	result, err := env.payments.HandleCallback(ctx, env.successCallback(payment, "BANK-TXN-1"))
	if !errors.Is(err, ErrOrderNoLongerPayable) {
		t.Fatalf("expected order no longer payable, got %v", err)
	}
	if result == nil || result.OrderPaid || result.Payment.Status != constants.PaymentStatusSuccess {
		t.Fatalf("unexpected late callback result: %+v", result)
	}
	status, _ := env.payments.Status(ctx, payment.ID)
	if status != constants.PaymentStatusSuccess {
		t.Fatalf("late payment should still be recorded as success, got %s", status)
	}
	stored, _ := env.orders.Get(ctx, order.ID)
	if stored.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("late callback must not pay order, got %s", stored.Status)
	}
}

func TestPaymentInitiateRejections(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_initiate_reject")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")

	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: "paypal", Amount: decimal.NewFromInt(100)}); !errors.Is(err, ErrUnsupportedChannel) {
		t.Fatalf("expected unsupported channel, got %v", err)
	}
	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(99)}); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-2", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for other user, got %v", err)
	}

	env.clock.Advance(31 * time.Minute)
	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)}); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected order not payable after deadline, got %v", err)
	}
}

func TestPaymentInitiateReusesAndSupersedes(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_initiate_reuse")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")
	input := InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)}

	first, err := env.payments.Initiate(ctx, input)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	again, err := env.payments.Initiate(ctx, input)
	if err != nil {
		t.Fatalf("repeat initiate failed: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("same channel and amount should reuse payment, got %s and %s", first.ID, again.ID)
	}

	input.Channel = constants.PaymentChannelAlipayApp
	switched, err := env.payments.Initiate(ctx, input)
	if err != nil {
		t.Fatalf("switch channel failed: %v", err)
	}
	if switched.ID == first.ID || !strings.HasPrefix(switched.RedirectURL, "alipays://") {
		t.Fatalf("unexpected switched payment: %+v", switched)
	}

	payments, err := env.payments.ListByOrder(ctx, "u-1", order.ID)
	if err != nil {
		t.Fatalf("list payments failed: %v", err)
	}
	nonTerminal := 0
	for _, p := range payments {
		if p.Status == constants.PaymentStatusInitiated || p.Status == constants.PaymentStatusPending {
			nonTerminal++
		}
		if p.ID == first.ID && p.Status != constants.PaymentStatusFailed {
			t.Fatalf("previous payment should be superseded, got %s", p.Status)
		}
	}
	if len(payments) != 2 || nonTerminal != 1 {
		t.Fatalf("expected one non-terminal payment out of two, got %d/%d", nonTerminal, len(payments))
	}
}

func TestPaymentCallbackRejections(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_callback_reject")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")
	payment, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechatApp, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	missing := env.successCallback(&models.PaymentOrder{ID: "PY-missing", OrderID: order.ID, Amount: payment.Amount}, "T1")
	if _, err := env.payments.HandleCallback(ctx, missing); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected payment not found, got %v", err)
	}

	forged := env.successCallback(payment, "T1")
	forged.Signature = strings.Repeat("0", 64)
	if _, err := env.payments.HandleCallback(ctx, forged); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature invalid, got %v", err)
	}

	wrongOrder := env.signCallback(PaymentCallbackInput{PaymentID: payment.ID, OrderID: "OD-other", Status: "success", TransactionID: "T1", Amount: payment.Amount.Decimal})
	if _, err := env.payments.HandleCallback(ctx, wrongOrder); !errors.Is(err, ErrCallbackMalformed) {
		t.Fatalf("expected malformed callback for order mismatch, got %v", err)
	}

	noTxn := env.signCallback(PaymentCallbackInput{PaymentID: payment.ID, OrderID: order.ID, Status: "success", Amount: payment.Amount.Decimal})
	if _, err := env.payments.HandleCallback(ctx, noTxn); !errors.Is(err, ErrCallbackMalformed) {
		t.Fatalf("expected malformed callback for missing transaction id, got %v", err)
	}

	badStatus := env.signCallback(PaymentCallbackInput{PaymentID: payment.ID, OrderID: order.ID, Status: "refunding", TransactionID: "T1", Amount: payment.Amount.Decimal})
	if _, err := env.payments.HandleCallback(ctx, badStatus); !errors.Is(err, ErrCallbackMalformed) {
		t.Fatalf("expected malformed callback for unknown status, got %v", err)
	}

	wrongAmount := env.signCallback(PaymentCallbackInput{PaymentID: payment.ID, OrderID: order.ID, Status: "success", TransactionID: "T1", Amount: decimal.NewFromInt(1)})
	if _, err := env.payments.HandleCallback(ctx, wrongAmount); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	status, _ := env.payments.Status(ctx, payment.ID)
	if status != constants.PaymentStatusPending {
		t.Fatalf("rejected callbacks must not change status, got %s", status)
	}
	if _, err := env.payments.Status(ctx, "PY-missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected payment not found on status, got %v", err)
	}
}

func TestPaymentFailedCallbackIsTerminal(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_failed_terminal")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")
	payment, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	failed := env.signCallback(PaymentCallbackInput{PaymentID: payment.ID, OrderID: order.ID, Status: "FAIL", TransactionID: "T-fail", Amount: payment.Amount.Decimal})
	result, err := env.payments.HandleCallback(ctx, failed)
	if err != nil || result.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("failed callback not applied: %+v %v", result, err)
	}
	if env.publisher.count(constants.EventPaymentFailed) != 1 {
		t.Fatalf("expected payment.failed event")
	}

	late := env.successCallback(payment, "T-late")
	result, err = env.payments.HandleCallback(ctx, late)
	if err != nil {
		t.Fatalf("callback on terminal payment should be accepted, got %v", err)
	}
	stored, _ := env.payments.Get(ctx, payment.ID)
	if stored.Status != constants.PaymentStatusFailed || stored.LastTransactionID != "T-late" {
		t.Fatalf("terminal payment regressed or txn not recorded: %+v", stored)
	}
	orderStored, _ := env.orders.Get(ctx, order.ID)
	if orderStored.Status != constants.OrderStatusPendingPayment || result.OrderPaid {
		t.Fatalf("order must stay pending, got %s", orderStored.Status)
	}
}

func TestPaymentSupersededSuccessCallbackStillCounts(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_superseded_success")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")

	wechat, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("initiate wechat failed: %v", err)
	}
	alipay, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelAlipay, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("initiate alipay failed: %v", err)
	}

	result, err := env.payments.HandleCallback(ctx, env.successCallback(wechat, "WX-LATE"))
	if err != nil {
		t.Fatalf("superseded payment success callback failed: %v", err)
	}
	if !result.OrderPaid || !result.Revived || result.Payment.Status != constants.PaymentStatusSuccess {
		t.Fatalf("unexpected callback result: %+v", result)
	}
	stored, _ := env.payments.Get(ctx, wechat.ID)
	if stored.Status != constants.PaymentStatusSuccess || stored.FailureReason != "" {
		t.Fatalf("superseded payment should be success, got %+v", stored)
	}
	orderStored, _ := env.orders.Get(ctx, order.ID)
	if orderStored.Status != constants.OrderStatusPaid {
		t.Fatalf("order should be paid, got %s", orderStored.Status)
	}
	if env.publisher.count(constants.EventPaymentSucceeded) != 1 || env.publisher.count(constants.EventOrderPaid) != 1 {
		t.Fatalf("expected payment.succeeded and order.paid events")
	}

	// 订单已由旧单支付，新单再成功需退款
	_, err = env.payments.HandleCallback(ctx, env.successCallback(alipay, "ALI-TXN-1"))
	if !errors.Is(err, ErrOrderNoLongerPayable) {
		t.Fatalf("expected order no longer payable, got %v", err)
	}
	last := env.publisher.last(constants.EventPaymentSucceeded)
	if last == nil || last.AggregateID != alipay.ID || last.Data["refund_required"] != true {
		t.Fatalf("second success should require refund, got %+v", last)
	}
}

func TestPaymentSupersededFailedCallbackStaysFailed(t *testing.T) {
	env := setupBookingServiceTest(t, "payment_superseded_failed")
	ctx := context.Background()
	order := env.createOrder(t, "u-1", 1, "100")

	wechat, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelWechat, Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("initiate wechat failed: %v", err)
	}
	if _, err := env.payments.Initiate(ctx, InitiatePaymentInput{UserID: "u-1", OrderID: order.ID, Channel: constants.PaymentChannelBankCard, Amount: decimal.NewFromInt(100)}); err != nil {
		t.Fatalf("initiate bank card failed: %v", err)
	}

	failed := env.signCallback(PaymentCallbackInput{PaymentID: wechat.ID, OrderID: order.ID, Status: "closed", TransactionID: "WX-CLOSED", Amount: wechat.Amount.Decimal})
	result, err := env.payments.HandleCallback(ctx, failed)
	if err != nil || result.Revived || result.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("failed callback on superseded payment should be recorded only: %+v %v", result, err)
	}
	if env.publisher.count(constants.EventPaymentFailed) != 0 {
		t.Fatalf("superseded payment failure must not emit events")
	}
}
