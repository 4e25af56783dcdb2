package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/payment/channel"
	"github.com/railbook-next/internal/payment/signature"
	"github.com/railbook-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const testCallbackSecret = "callback-secret"

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, event := range p.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(eventType string) *events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == eventType {
			event := p.events[i]
			return &event
		}
	}
	return nil
}

type fixedInventory struct {
	remaining int
}

func (f fixedInventory) Remaining(_ context.Context, _ InventoryQuery) (int, error) {
	return f.remaining, nil
}

type bookingTestEnv struct {
	db        *gorm.DB
	clock     *clock.Fake
	publisher *recordingPublisher
	locks     *SeatLockService
	orders    *OrderService
	payments  *PaymentService
	hmac      *signature.HMACVerifier
}

func setupBookingServiceTest(t *testing.T, name string) *bookingTestEnv {
	return setupBookingServiceTestWithInventory(t, name, UnlimitedInventory{})
}

func setupBookingServiceTestWithInventory(t *testing.T, name string, inventory InventoryChecker) *bookingTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// sqlite 写事务串行化
	sqlDB.SetMaxOpenConns(1)
	models.DB = db

	fake := clock.NewFake(time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC))
	ids := &clock.SequenceIDs{}
	publisher := &recordingPublisher{}
	emitter := NewBookingEventEmitter(publisher, nil)

	locks := NewSeatLockService(repository.NewSeatLockRepository(db), inventory, nil, emitter, SeatLockOptions{
		TTL:              15 * time.Minute,
		InventoryTimeout: 100 * time.Millisecond,
		Clock:            fake,
		IDs:              ids,
	})
	orders := NewOrderService(repository.NewOrderRepository(db), locks, NewPricingEngine(), nil, emitter, OrderOptions{
		PaymentWindow: 30 * time.Minute,
		Clock:         fake,
		IDs:           ids,
	})
	paymentCfg := config.PaymentConfig{CallbackSecret: testCallbackSecret}
	router, err := signature.NewRouter(paymentCfg)
	if err != nil {
		t.Fatalf("build signature router failed: %v", err)
	}
	payments := NewPaymentService(repository.NewPaymentRepository(db), repository.NewOrderRepository(db), channel.NewRegistry(paymentCfg), router, emitter, PaymentOptions{
		NotifyURL: "https://api.railbook.test/api/v1/payments/callback",
		Clock:     fake,
		IDs:       ids,
	})
	hmacVerifier, err := signature.NewHMACVerifier(testCallbackSecret)
	if err != nil {
		t.Fatalf("build hmac verifier failed: %v", err)
	}
	return &bookingTestEnv{
		db:        db,
		clock:     fake,
		publisher: publisher,
		locks:     locks,
		orders:    orders,
		payments:  payments,
		hmac:      hmacVerifier,
	}
}

func (env *bookingTestEnv) acquireLock(t *testing.T, userID string, seats int) *models.SeatLock {
	t.Helper()
	lock, err := env.locks.Acquire(context.Background(), AcquireSeatLockInput{
		UserID:     userID,
		TrainID:    "g102",
		TravelDate: "2026-10-25",
		SeatClass:  "Second",
		SeatCount:  seats,
	})
	if err != nil {
		t.Fatalf("acquire lock failed: %v", err)
	}
	return lock
}

func testPassengers(n int) []models.Passenger {
	ids := []string{"11010519491231002X", "110105194912310021", "E1234567", "440301199001011234"}
	passengers := make([]models.Passenger, 0, n)
	for i := 0; i < n; i++ {
		certType := constants.CertificateTypeNationalID
		if ids[i%len(ids)] == "E1234567" {
			certType = constants.CertificateTypePassport
		}
		passengers = append(passengers, models.Passenger{
			Name:            fmt.Sprintf("乘客%d", i+1),
			CertificateID:   ids[i%len(ids)],
			CertificateType: certType,
		})
	}
	return passengers
}

func (env *bookingTestEnv) createOrder(t *testing.T, userID string, seats int, unitPrice string) *models.Order {
	t.Helper()
	lock := env.acquireLock(t, userID, seats)
	order, err := env.orders.Create(context.Background(), CreateOrderInput{
		UserID:     userID,
		LockID:     lock.ID,
		Passengers: testPassengers(seats),
		UnitPrice:  decimal.RequireFromString(unitPrice),
		Route:      "北京南-上海虹桥",
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func (env *bookingTestEnv) signCallback(input PaymentCallbackInput) PaymentCallbackInput {
	input.Timestamp = fmt.Sprintf("%d", env.clock.Now().Unix())
	input.Nonce = "nonce-" + input.TransactionID
	input.Signature = env.hmac.Sign(signature.BuildMessage(input.Timestamp, input.Nonce, input.SignatureBody()))
	return input
}

func (env *bookingTestEnv) successCallback(payment *models.PaymentOrder, transactionID string) PaymentCallbackInput {
	return env.signCallback(PaymentCallbackInput{
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Status:        "success",
		TransactionID: transactionID,
		Amount:        payment.Amount.Decimal,
	})
}
