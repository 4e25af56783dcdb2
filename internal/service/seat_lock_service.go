package service

import (
	"context"
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

	"gorm.io/gorm"
)

const (
	defaultSeatLockTTL      = 15 * time.Minute
	defaultMaxSeatsPerLock  = 5
	defaultInventoryTimeout = 800 * time.Millisecond
)

// SeatLockOptions 锁座服务参数
type SeatLockOptions struct {
	TTL              time.Duration
	MaxSeatsPerLock  int
	InventoryTimeout time.Duration
	InventoryRetries int
	Clock            clock.Clock
	IDs              clock.IDGenerator
}

// SeatLockService 锁座服务
type SeatLockService struct {
	lockRepo    repository.SeatLockRepository
	inventory   InventoryChecker
	queueClient *queue.Client
	emitter     *BookingEventEmitter
	opts        SeatLockOptions
}

// NewSeatLockService 创建锁座服务
func NewSeatLockService(lockRepo repository.SeatLockRepository, inventory InventoryChecker, queueClient *queue.Client, emitter *BookingEventEmitter, opts SeatLockOptions) *SeatLockService {
	if inventory == nil {
		inventory = UnlimitedInventory{}
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultSeatLockTTL
	}
	if opts.MaxSeatsPerLock <= 0 {
		opts.MaxSeatsPerLock = defaultMaxSeatsPerLock
	}
	if opts.InventoryTimeout <= 0 {
		opts.InventoryTimeout = defaultInventoryTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.IDs == nil {
		opts.IDs = clock.UUIDGenerator{}
	}
	return &SeatLockService{
		lockRepo:    lockRepo,
		inventory:   inventory,
		queueClient: queueClient,
		emitter:     emitter,
		opts:        opts,
	}
}

// AcquireSeatLockInput 锁座输入
type AcquireSeatLockInput struct {
	UserID     string
	TrainID    string
	TravelDate string
	SeatClass  string
	SeatCount  int
	TTL        time.Duration
}

// SweepResult 批量过期结果
type SweepResult struct {
	Scanned int
	Expired int
	Skipped int
	Failed  int
}

func (s *SeatLockService) validateAcquire(input *AcquireSeatLockInput) error {
	input.UserID = strings.TrimSpace(input.UserID)
	input.TrainID = strings.ToUpper(strings.TrimSpace(input.TrainID))
	input.TravelDate = strings.TrimSpace(input.TravelDate)
	input.SeatClass = strings.ToLower(strings.TrimSpace(input.SeatClass))

	verr := NewValidationError()
	if input.UserID == "" {
		verr.Add("user_id", "required")
	}
	if input.TrainID == "" {
		verr.Add("train_id", "required")
	}
	if input.TravelDate == "" {
		verr.Add("travel_date", "required")
	} else if _, err := time.Parse(constants.TravelDateLayout, input.TravelDate); err != nil {
		verr.Add("travel_date", "format")
	}
	if input.SeatClass == "" {
		verr.Add("seat_class", "required")
	}
	if input.SeatCount <= 0 {
		verr.Add("seat_count", "must be positive")
	} else if input.SeatCount > s.opts.MaxSeatsPerLock {
		verr.Add("seat_count", fmt.Sprintf("must not exceed %d", s.opts.MaxSeatsPerLock))
	}
	if input.TTL < 0 {
		verr.Add("ttl", "must not be negative")
	}
	return verr.errOrNil()
}

// Acquire 查询余票并创建有效期内的锁座
func (s *SeatLockService) Acquire(ctx context.Context, input AcquireSeatLockInput) (*models.SeatLock, error) {
	if err := s.validateAcquire(&input); err != nil {
		return nil, err
	}
	query := InventoryQuery{TrainID: input.TrainID, TravelDate: input.TravelDate, SeatClass: input.SeatClass}
	if IsDegradedInventory(s.inventory) {
		logger.Warnw("inventory_check_degraded",
			"train_id", input.TrainID,
			"travel_date", input.TravelDate,
			"seat_class", input.SeatClass,
			"seat_count", input.SeatCount,
		)
	}
	remaining, err := checkInventoryWithRetry(ctx, s.inventory, query, s.opts.InventoryTimeout, s.opts.InventoryRetries)
	if err != nil {
		logger.Warnw("seat_lock_inventory_check_failed",
			"user_id", input.UserID,
			"train_id", input.TrainID,
			"error", err,
		)
		return nil, err
	}
	if remaining < input.SeatCount {
		return nil, fmt.Errorf("%w: requested %d, remaining %d", ErrInsufficientInventory, input.SeatCount, remaining)
	}

	now := s.opts.Clock.Now()
	lock := &models.SeatLock{
		ID:         s.opts.IDs.NewID(clock.PrefixSeatLock),
		UserID:     input.UserID,
		TrainID:    input.TrainID,
		TravelDate: input.TravelDate,
		SeatClass:  input.SeatClass,
		SeatCount:  input.SeatCount,
		State:      constants.SeatLockStateActive,
		ExpiresAt:  clock.Deadline(now, input.TTL, s.opts.TTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.lockRepo.Create(lock); err != nil {
		logger.Errorw("seat_lock_create_failed", "user_id", input.UserID, "train_id", input.TrainID, "error", err)
		return nil, ErrSeatLockCreateFailed
	}

	s.invalidateInventory(ctx, query)
	if s.queueClient != nil {
		delay := clock.Remaining(now, lock.ExpiresAt) + time.Second
		if err := s.queueClient.EnqueueSeatLockExpire(queue.SeatLockExpirePayload{LockID: lock.ID}, delay); err != nil {
			logger.Warnw("seat_lock_enqueue_expire_failed", "lock_id", lock.ID, "error", err)
		}
	}
	logger.Infow("seat_lock_acquired",
		"lock_id", lock.ID,
		"user_id", lock.UserID,
		"train_id", lock.TrainID,
		"travel_date", lock.TravelDate,
		"seat_class", lock.SeatClass,
		"seat_count", lock.SeatCount,
		"expires_at", lock.ExpiresAt,
	)
	return lock, nil
}

// Get 获取锁座
func (s *SeatLockService) Get(ctx context.Context, lockID string) (*models.SeatLock, error) {
	lock, err := s.lockRepo.GetByID(lockID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrLockNotFound
	}
	return lock, nil
}

// GetForUser 获取用户自己的锁座
func (s *SeatLockService) GetForUser(ctx context.Context, userID, lockID string) (*models.SeatLock, error) {
	lock, err := s.lockRepo.GetByIDAndUser(lockID, userID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrLockNotFound
	}
	return lock, nil
}

// Consume 独立事务内消费锁座
func (s *SeatLockService) Consume(ctx context.Context, lockID string) (*models.SeatLock, error) {
	var consumed *models.SeatLock
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock, err := s.ConsumeTx(tx, lockID, "", "")
		if err != nil {
			return err
		}
		consumed = lock
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// ConsumeTx 在调用方事务内消费锁座，userID 非空时校验归属
// 并发调用仅有一个成功，其余得到 ErrLockAlreadyConsumed
func (s *SeatLockService) ConsumeTx(tx *gorm.DB, lockID, userID, orderID string) (*models.SeatLock, error) {
	lockRepo := s.lockRepo.WithTx(tx)
	lockID = strings.TrimSpace(lockID)
	if userID != "" {
		owned, err := lockRepo.GetByIDAndUser(lockID, userID)
		if err != nil {
			return nil, err
		}
		if owned == nil {
			return nil, ErrLockNotFound
		}
	}

	now := s.opts.Clock.Now()
	affected, err := lockRepo.ConsumeActive(lockID, orderID, now)
	if err != nil {
		return nil, err
	}
	lock, err := lockRepo.GetByID(lockID)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrLockNotFound
	}
	if affected == 1 {
		return lock, nil
	}
	switch lock.State {
	case constants.SeatLockStateConsumed:
		return nil, ErrLockAlreadyConsumed
	case constants.SeatLockStateExpired:
		return nil, ErrLockExpired
	}
	if clock.Passed(now, lock.ExpiresAt) {
		return nil, ErrLockExpired
	}
	return nil, ErrLockAlreadyConsumed
}

// Expire 将已到期的 active 锁座置为过期；已消费、已过期或未到期时为空操作
func (s *SeatLockService) Expire(ctx context.Context, lockID string) (bool, error) {
	now := s.opts.Clock.Now()
	affected, err := s.lockRepo.ExpireActive(lockID, now)
	if err != nil {
		return false, err
	}
	if affected == 0 {
		lock, err := s.lockRepo.GetByID(lockID)
		if err != nil {
			return false, err
		}
		if lock == nil {
			return false, ErrLockNotFound
		}
		return false, nil
	}
	lock, err := s.lockRepo.GetByID(lockID)
	if err != nil || lock == nil {
		return true, err
	}
	s.invalidateInventory(ctx, InventoryQuery{TrainID: lock.TrainID, TravelDate: lock.TravelDate, SeatClass: lock.SeatClass})
	s.emitter.Emit(ctx, events.NewEvent(constants.EventSeatLockExpired, lock.ID, lock.UserID, now, map[string]interface{}{
		"train_id":    lock.TrainID,
		"travel_date": lock.TravelDate,
		"seat_class":  lock.SeatClass,
		"seat_count":  lock.SeatCount,
	}))
	logger.Infow("seat_lock_expired", "lock_id", lock.ID, "user_id", lock.UserID, "expires_at", lock.ExpiresAt)
	return true, nil
}

// ExpireDue 批量过期到期锁座，单条失败记录日志后继续
func (s *SeatLockService) ExpireDue(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	var result SweepResult
	locks, err := s.lockRepo.ListDueActive(now, limit)
	if err != nil {
		return result, err
	}
	result.Scanned = len(locks)
	for _, lock := range locks {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		expired, err := s.Expire(ctx, lock.ID)
		if err != nil {
			result.Failed++
			logger.Warnw("sweeper_lock_expire_failed", "lock_id", lock.ID, "error", err)
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

// InvalidateInventory 通知余票协作方刷新缓存
func (s *SeatLockService) InvalidateInventory(ctx context.Context, query InventoryQuery) {
	s.invalidateInventory(ctx, query)
}

func (s *SeatLockService) invalidateInventory(ctx context.Context, query InventoryQuery) {
	invalidator, ok := s.inventory.(InventoryInvalidator)
	if !ok {
		return
	}
	if err := invalidator.Invalidate(ctx, query); err != nil {
		logger.Warnw("inventory_cache_invalidate_failed", "train_id", query.TrainID, "error", err)
	}
}

// Now 当前时间（与锁座判定使用同一时钟）
func (s *SeatLockService) Now() time.Time {
	return s.opts.Clock.Now()
}
