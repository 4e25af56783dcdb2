package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/payment/channel"
	"github.com/railbook-next/internal/payment/signature"
	"github.com/railbook-next/internal/provider"
	"github.com/railbook-next/internal/repository"
	"github.com/railbook-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const handlerCallbackSecret = "handler-callback-secret"

type handlerTestEnv struct {
	engine *gin.Engine
	clock  *clock.Fake
	hmac   *signature.HMACVerifier
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Page      int   `json:"page"`
		PageSize  int   `json:"page_size"`
		Total     int64 `json:"total"`
		TotalPage int64 `json:"total_page"`
	} `json:"pagination"`
}

type remainingInventory int

func (r remainingInventory) Remaining(_ context.Context, _ service.InventoryQuery) (int, error) {
	return int(r), nil
}

func setupHandlerTest(t *testing.T, inventory service.InventoryChecker) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	sqlDB.SetMaxOpenConns(1)
	models.DB = db

	fake := clock.NewFake(time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC))
	ids := &clock.SequenceIDs{}
	emitter := service.NewBookingEventEmitter(nil, nil)
	paymentCfg := config.PaymentConfig{CallbackSecret: handlerCallbackSecret}
	verifier, err := signature.NewRouter(paymentCfg)
	if err != nil {
		t.Fatalf("build signature router failed: %v", err)
	}
	hmacVerifier, err := signature.NewHMACVerifier(handlerCallbackSecret)
	if err != nil {
		t.Fatalf("build hmac verifier failed: %v", err)
	}

	c := &provider.Container{
		Config:       &config.Config{},
		SeatLockRepo: repository.NewSeatLockRepository(db),
		OrderRepo:    repository.NewOrderRepository(db),
		PaymentRepo:  repository.NewPaymentRepository(db),
		Inventory:    inventory,
		Channels:     channel.NewRegistry(paymentCfg),
		Verifier:     verifier,
	}
	c.PricingEngine = service.NewPricingEngine()
	c.SeatLockService = service.NewSeatLockService(c.SeatLockRepo, inventory, nil, emitter, service.SeatLockOptions{
		TTL:   15 * time.Minute,
		Clock: fake,
		IDs:   ids,
	})
	c.OrderService = service.NewOrderService(c.OrderRepo, c.SeatLockService, c.PricingEngine, nil, emitter, service.OrderOptions{
		PaymentWindow: 30 * time.Minute,
		Clock:         fake,
		IDs:           ids,
	})
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.OrderRepo, c.Channels, c.Verifier, emitter, service.PaymentOptions{
		NotifyURL: "https://api.railbook.test/api/v1/payments/callback",
		Clock:     fake,
		IDs:       ids,
	})

	h := New(c)
	r := gin.New()
	r.GET("/health", h.Health)
	r.POST("/api/v1/payments/callback", h.PaymentCallback)
	user := r.Group("/api/v1")
	user.Use(func(ctx *gin.Context) {
		if id := ctx.GetHeader("X-Test-User"); id != "" {
			ctx.Set("user_id", id)
		}
		ctx.Next()
	})
	user.POST("/locks", h.AcquireSeatLock)
	user.GET("/locks/:id", h.GetSeatLock)
	user.POST("/orders", h.CreateOrder)
	user.GET("/orders", h.ListOrders)
	user.GET("/orders/:id", h.GetOrder)
	user.POST("/orders/:id/cancel", h.CancelOrder)
	user.GET("/orders/:id/payments", h.ListOrderPayments)
	user.POST("/payments", h.InitiatePayment)
	user.GET("/payments/:id/status", h.GetPaymentStatus)

	return &handlerTestEnv{engine: r, clock: fake, hmac: hmacVerifier}
}

func (env *handlerTestEnv) do(t *testing.T, method, path, userID string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return w, resp
}

func decodeData(t *testing.T, resp envelope, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, dest); err != nil {
		t.Fatalf("decode data failed: %v data=%s", err, string(resp.Data))
	}
}

func lockBody(seats int) gin.H {
	return gin.H{"train_id": "G102", "travel_date": "2026-10-25", "seat_class": "second", "seat_count": seats}
}

func passengerBody(n int) []gin.H {
	ids := []string{"11010519491231002X", "110105194912310021", "440301199001011234"}
	result := make([]gin.H, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, gin.H{
			"name":             fmt.Sprintf("乘客%d", i+1),
			"certificate_id":   ids[i%len(ids)],
			"certificate_type": constants.CertificateTypeNationalID,
		})
	}
	return result
}

func (env *handlerTestEnv) acquire(t *testing.T, userID string, seats int) string {
	t.Helper()
	w, resp := env.do(t, http.MethodPost, "/api/v1/locks", userID, lockBody(seats), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("acquire lock status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var lock struct {
		LockID    string    `json:"lock_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	decodeData(t, resp, &lock)
	if lock.LockID == "" || lock.ExpiresAt.IsZero() {
		t.Fatalf("lock response incomplete: %s", string(resp.Data))
	}
	return lock.LockID
}

func (env *handlerTestEnv) callbackHeaders(payload service.PaymentCallbackInput) map[string]string {
	timestamp := fmt.Sprintf("%d", env.clock.Now().Unix())
	nonce := "n-" + payload.TransactionID
	sig := env.hmac.Sign(signature.BuildMessage(timestamp, nonce, payload.SignatureBody()))
	return map[string]string{
		headerCallbackSignature: sig,
		headerCallbackTimestamp: timestamp,
		headerCallbackNonce:     nonce,
	}
}

func callbackBody(payload service.PaymentCallbackInput) gin.H {
	return gin.H{
		"payment_id":     payload.PaymentID,
		"order_id":       payload.OrderID,
		"status":         payload.Status,
		"transaction_id": payload.TransactionID,
		"amount":         payload.Amount.StringFixed(2),
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	env := setupHandlerTest(t, service.UnlimitedInventory{})
	lockID := env.acquire(t, "u-1", 2)

	w, resp := env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{
		"lock_id":    lockID,
		"passengers": passengerBody(2),
		"unit_price": "200",
		"route":      "北京南-上海虹桥",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order status want 201 got %d body=%s", w.Code, w.Body.String())
	}
	var order struct {
		OrderID    string `json:"order_id"`
		TotalPrice string `json:"total_price"`
		Status     string `json:"status"`
	}
	decodeData(t, resp, &order)
	if order.TotalPrice != "400.00" || order.Status != constants.OrderStatusPendingPayment {
		t.Fatalf("unexpected order: %+v", order)
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/payments", "u-1", gin.H{
		"order_id": order.OrderID,
		"channel":  constants.PaymentChannelWechat,
		"amount":   "400",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("initiate payment status want 200 got %d body=%s", w.Code, w.Body.String())
	}
	var payment struct {
		PaymentID       string `json:"payment_id"`
		RedirectURL     string `json:"redirect_url"`
		InteractionMode string `json:"interaction_mode"`
		Amount          string `json:"amount"`
	}
	decodeData(t, resp, &payment)
	if payment.InteractionMode != constants.PaymentInteractionQR || payment.Amount != "400.00" || payment.RedirectURL == "" {
		t.Fatalf("unexpected payment: %+v", payment)
	}

	callback := service.PaymentCallbackInput{
		PaymentID:     payment.PaymentID,
		OrderID:       order.OrderID,
		Status:        "success",
		TransactionID: "wx-txn-1",
		Amount:        decimal.RequireFromString("400"),
	}
	for i := 0; i < 2; i++ {
		w, resp = env.do(t, http.MethodPost, "/api/v1/payments/callback", "", callbackBody(callback), env.callbackHeaders(callback))
		if w.Code != http.StatusOK {
			t.Fatalf("callback %d status want 200 got %d body=%s", i, w.Code, w.Body.String())
		}
		var result struct {
			Status    string `json:"status"`
			Duplicate bool   `json:"duplicate"`
		}
		decodeData(t, resp, &result)
		if result.Status != constants.PaymentStatusSuccess || result.Duplicate != (i == 1) {
			t.Fatalf("callback %d unexpected result: %+v", i, result)
		}
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/payments/"+payment.PaymentID+"/status", "u-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("payment status want 200 got %d", w.Code)
	}
	var status struct {
		Status string `json:"status"`
	}
	decodeData(t, resp, &status)
	if status.Status != constants.PaymentStatusSuccess {
		t.Fatalf("payment status want success got %s", status.Status)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/orders/"+order.OrderID, "u-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order want 200 got %d", w.Code)
	}
	decodeData(t, resp, &order)
	if order.Status != constants.OrderStatusPaid {
		t.Fatalf("order status want paid got %s", order.Status)
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/payments/"+payment.PaymentID+"/status", "u-2", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign payment status want 404 got %d", w.Code)
	}
}

func TestCreateOrderErrorStatuses(t *testing.T) {
	env := setupHandlerTest(t, service.UnlimitedInventory{})

	w, resp := env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": "SL-missing", "passengers": passengerBody(1), "unit_price": "100"}, nil)
	if w.Code != http.StatusNotFound || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown lock want 404 got %d/%d", w.Code, resp.StatusCode)
	}

	lockID := env.acquire(t, "u-1", 2)
	w, resp = env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": passengerBody(1), "unit_price": "100"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("passenger mismatch want 400 got %d body=%s", w.Code, w.Body.String())
	}

	w, resp = env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": []gin.H{}, "unit_price": "100"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty passengers want 400 got %d", w.Code)
	}
	var fields struct {
		Fields map[string]string `json:"fields"`
	}
	decodeData(t, resp, &fields)
	if _, ok := fields.Fields["passengers"]; !ok {
		t.Fatalf("validation response should list passengers field: %s", string(resp.Data))
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": passengerBody(2), "unit_price": "100"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create order want 201 got %d body=%s", w.Code, w.Body.String())
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": passengerBody(2), "unit_price": "100"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("consumed lock want 409 got %d", w.Code)
	}

	expiring := env.acquire(t, "u-1", 1)
	env.clock.Advance(16 * time.Minute)
	w, _ = env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": expiring, "passengers": passengerBody(1), "unit_price": "100"}, nil)
	if w.Code != http.StatusGone {
		t.Fatalf("expired lock want 410 got %d", w.Code)
	}
}

func TestSeatLockErrorStatuses(t *testing.T) {
	env := setupHandlerTest(t, remainingInventory(1))

	w, _ := env.do(t, http.MethodPost, "/api/v1/locks", "", lockBody(1), nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous lock want 401 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/locks", "u-1", lockBody(2), nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("insufficient inventory want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/locks", "u-1", gin.H{"train_id": "G1", "travel_date": "25/10/2026", "seat_class": "second", "seat_count": 1}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad travel date want 400 got %d", w.Code)
	}

	lockID := env.acquire(t, "u-1", 1)
	w, _ = env.do(t, http.MethodGet, "/api/v1/locks/"+lockID, "u-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get own lock want 200 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/locks/"+lockID, "u-2", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get foreign lock want 404 got %d", w.Code)
	}
}

func TestPaymentCallbackErrorStatuses(t *testing.T) {
	env := setupHandlerTest(t, service.UnlimitedInventory{})
	lockID := env.acquire(t, "u-1", 1)
	_, resp := env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": passengerBody(1), "unit_price": "150"}, nil)
	var order struct {
		OrderID string `json:"order_id"`
	}
	decodeData(t, resp, &order)

	w, _ := env.do(t, http.MethodPost, "/api/v1/payments", "u-1", gin.H{"order_id": order.OrderID, "channel": "alipay", "amount": "99"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("amount mismatch want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/payments", "u-1", gin.H{"order_id": order.OrderID, "channel": "paypal", "amount": "150"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported channel want 400 got %d", w.Code)
	}
	_, resp = env.do(t, http.MethodPost, "/api/v1/payments", "u-1", gin.H{"order_id": order.OrderID, "channel": "alipay", "amount": "150"}, nil)
	var payment struct {
		PaymentID string `json:"payment_id"`
	}
	decodeData(t, resp, &payment)

	callback := service.PaymentCallbackInput{
		PaymentID:     payment.PaymentID,
		OrderID:       order.OrderID,
		Status:        "success",
		TransactionID: "ali-1",
		Amount:        decimal.RequireFromString("150"),
	}
	headers := env.callbackHeaders(callback)
	headers[headerCallbackSignature] = strings.Repeat("0", len(headers[headerCallbackSignature]))
	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/callback", "", callbackBody(callback), headers)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature want 400 got %d", w.Code)
	}

	unknown := callback
	unknown.PaymentID = "PY-missing"
	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/callback", "", callbackBody(unknown), env.callbackHeaders(unknown))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown payment want 404 got %d", w.Code)
	}

	env.clock.Advance(31 * time.Minute)
	w, _ = env.do(t, http.MethodPost, "/api/v1/payments/callback", "", callbackBody(callback), env.callbackHeaders(callback))
	if w.Code != http.StatusGone {
		t.Fatalf("late callback want 410 got %d body=%s", w.Code, w.Body.String())
	}
	_, resp = env.do(t, http.MethodGet, "/api/v1/payments/"+payment.PaymentID+"/status", "u-1", nil, nil)
	var status struct {
		Status string `json:"status"`
	}
	decodeData(t, resp, &status)
	if status.Status != constants.PaymentStatusSuccess {
		t.Fatalf("late payment should still be recorded as success, got %s", status.Status)
	}
}

func TestListAndCancelOrders(t *testing.T) {
	env := setupHandlerTest(t, service.UnlimitedInventory{})
	for i := 0; i < 3; i++ {
		lockID := env.acquire(t, "u-1", 1)
		w, _ := env.do(t, http.MethodPost, "/api/v1/orders", "u-1", gin.H{"lock_id": lockID, "passengers": passengerBody(1), "unit_price": "80"}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("create order %d failed: %d", i, w.Code)
		}
		env.clock.Advance(time.Minute)
	}

	w, resp := env.do(t, http.MethodGet, "/api/v1/orders?page=1&page_size=2", "u-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list orders want 200 got %d", w.Code)
	}
	var orders []struct {
		OrderID string `json:"order_id"`
	}
	decodeData(t, resp, &orders)
	if len(orders) != 2 || resp.Pagination.Total != 3 || resp.Pagination.TotalPage != 2 {
		t.Fatalf("unexpected page: %d items, pagination %+v", len(orders), resp.Pagination)
	}

	w, _ = env.do(t, http.MethodGet, "/api/v1/orders?page=abc", "u-1", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad page want 400 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodGet, "/api/v1/orders?status=shipped", "u-1", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter want 400 got %d", w.Code)
	}

	w, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+orders[0].OrderID+"/cancel", "u-1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel want 200 got %d body=%s", w.Code, w.Body.String())
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+orders[0].OrderID+"/cancel", "u-1", nil, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second cancel want 409 got %d", w.Code)
	}
	w, _ = env.do(t, http.MethodPost, "/api/v1/orders/"+orders[1].OrderID+"/cancel", "u-2", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel want 404 got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodGet, "/api/v1/orders/"+orders[1].OrderID+"/payments", "u-1", nil, nil)
	if w.Code != http.StatusOK || string(resp.Data) != "[]" {
		t.Fatalf("order without payments should list empty, got %d %s", w.Code, string(resp.Data))
	}
}

func TestHealth(t *testing.T) {
	env := setupHandlerTest(t, service.UnlimitedInventory{})
	w, _ := env.do(t, http.MethodGet, "/health", "", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health want 200 got %d", w.Code)
	}
}
