package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/railbook-next/internal/cache"
	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/logger"
)

// InventoryQuery 余票查询条件
type InventoryQuery struct {
	TrainID    string
	TravelDate string
	SeatClass  string
}

// InventoryChecker 余票查询协作方
type InventoryChecker interface {
	Remaining(ctx context.Context, query InventoryQuery) (int, error)
}

// InventoryInvalidator 锁座/释放后通知协作方刷新余票
type InventoryInvalidator interface {
	Invalidate(ctx context.Context, query InventoryQuery) error
}

// UnlimitedInventory 未接入余票服务时的降级实现，不做任何限制，可能导致超售
type UnlimitedInventory struct{}

// Remaining 恒返回最大值
func (UnlimitedInventory) Remaining(_ context.Context, _ InventoryQuery) (int, error) {
	return math.MaxInt32, nil
}

// Degraded 标识为降级实现
func (UnlimitedInventory) Degraded() bool {
	return true
}

// degradedInventory 降级实现需暴露的能力
type degradedInventory interface {
	Degraded() bool
}

// IsDegradedInventory 判断是否为降级余票实现
func IsDegradedInventory(checker InventoryChecker) bool {
	if checker == nil {
		return true
	}
	degraded, ok := checker.(degradedInventory)
	return ok && degraded.Degraded()
}

// HTTPInventoryChecker 通过 HTTP 查询余票服务
// GET {base_url}/inventory?train_id=&travel_date=&seat_class= → {"remaining": n}
type HTTPInventoryChecker struct {
	baseURL string
	client  *http.Client
}

// NewHTTPInventoryChecker 创建 HTTP 余票查询
func NewHTTPInventoryChecker(baseURL string, client *http.Client) *HTTPInventoryChecker {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPInventoryChecker{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

type inventoryResponse struct {
	Remaining *int `json:"remaining"`
}

// Remaining 查询余票，超时由调用方的 ctx 控制
func (c *HTTPInventoryChecker) Remaining(ctx context.Context, query InventoryQuery) (int, error) {
	params := url.Values{}
	params.Set("train_id", query.TrainID)
	params.Set("travel_date", query.TravelDate)
	params.Set("seat_class", query.SeatClass)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/inventory?"+params.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", ErrInventoryUnavailable, resp.StatusCode)
	}
	var payload inventoryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", ErrInventoryUnavailable, err)
	}
	if payload.Remaining == nil {
		return 0, fmt.Errorf("%w: remaining missing", ErrInventoryUnavailable)
	}
	return *payload.Remaining, nil
}

// CachedInventoryChecker 在 Redis 中短暂缓存余票结果
type CachedInventoryChecker struct {
	next InventoryChecker
	ttl  time.Duration
}

// NewCachedInventoryChecker 包装余票查询，ttl 非正数时不缓存
func NewCachedInventoryChecker(next InventoryChecker, ttl time.Duration) *CachedInventoryChecker {
	return &CachedInventoryChecker{next: next, ttl: ttl}
}

// Remaining 先读缓存，未命中时查询并回写
func (c *CachedInventoryChecker) Remaining(ctx context.Context, query InventoryQuery) (int, error) {
	if c.ttl > 0 && cache.Enabled() {
		snapshot, hit, err := cache.GetInventory(ctx, query.TrainID, query.TravelDate, query.SeatClass)
		if err != nil {
			logger.Warnw("inventory_cache_get_failed", "train_id", query.TrainID, "error", err)
		} else if hit {
			return snapshot.Remaining, nil
		}
	}
	remaining, err := c.next.Remaining(ctx, query)
	if err != nil {
		return 0, err
	}
	if c.ttl > 0 && cache.Enabled() {
		if err := cache.SetInventory(ctx, &cache.InventorySnapshot{
			TrainID:    query.TrainID,
			TravelDate: query.TravelDate,
			SeatClass:  query.SeatClass,
			Remaining:  remaining,
		}, c.ttl); err != nil {
			logger.Warnw("inventory_cache_set_failed", "train_id", query.TrainID, "error", err)
		}
	}
	return remaining, nil
}

// Invalidate 删除余票缓存
func (c *CachedInventoryChecker) Invalidate(ctx context.Context, query InventoryQuery) error {
	return cache.InvalidateInventory(ctx, query.TrainID, query.TravelDate, query.SeatClass)
}

// Degraded 透传被包装实现的降级标识
func (c *CachedInventoryChecker) Degraded() bool {
	return IsDegradedInventory(c.next)
}

// NewInventoryChecker 按配置创建余票查询协作方
func NewInventoryChecker(cfg config.InventoryConfig) (InventoryChecker, error) {
	var checker InventoryChecker
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", constants.InventoryDriverUnlimited:
		logger.Warnw("inventory_check_degraded",
			"driver", constants.InventoryDriverUnlimited,
			"reason", "no inventory collaborator configured, seat locks are unconditional and may oversell",
		)
		return UnlimitedInventory{}, nil
	case constants.InventoryDriverHTTP:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, errors.New("inventory.base_url is required for http driver")
		}
		checker = NewHTTPInventoryChecker(cfg.BaseURL, nil)
	default:
		return nil, fmt.Errorf("unsupported inventory driver: %s", cfg.Driver)
	}
	if cfg.CacheTTLSeconds > 0 {
		checker = NewCachedInventoryChecker(checker, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	}
	return checker, nil
}

// checkInventoryWithRetry 在总超时内查询余票，瞬时错误按次数重试
func checkInventoryWithRetry(ctx context.Context, checker InventoryChecker, query InventoryQuery, timeout time.Duration, retries int) (int, error) {
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	if retries < 0 {
		retries = 0
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		remaining, err := checker.Remaining(checkCtx, query)
		if err == nil {
			return remaining, nil
		}
		lastErr = err
		if checkCtx.Err() != nil {
			break
		}
		logger.Warnw("inventory_check_retry",
			"train_id", query.TrainID,
			"travel_date", query.TravelDate,
			"attempt", attempt+1,
			"error", err,
		)
	}
	if errors.Is(checkCtx.Err(), context.DeadlineExceeded) || errors.Is(lastErr, context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w: %v", ErrInventoryCheckTimeout, lastErr)
	}
	if errors.Is(lastErr, ErrInventoryUnavailable) {
		return 0, lastErr
	}
	return 0, fmt.Errorf("%w: %v", ErrInventoryUnavailable, lastErr)
}
