package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"

	"gorm.io/gorm"
)

// SeatLockRepository 锁座数据访问接口
type SeatLockRepository interface {
	Create(lock *models.SeatLock) error
	GetByID(id string) (*models.SeatLock, error)
	GetByIDAndUser(id, userID string) (*models.SeatLock, error)
	ConsumeActive(id, orderID string, now time.Time) (int64, error)
	ExpireActive(id string, now time.Time) (int64, error)
	ListDueActive(now time.Time, limit int) ([]models.SeatLock, error)
	WithTx(tx *gorm.DB) *GormSeatLockRepository
}

// GormSeatLockRepository GORM 实现
type GormSeatLockRepository struct {
	db *gorm.DB
}

// NewSeatLockRepository 创建锁座仓库
func NewSeatLockRepository(db *gorm.DB) *GormSeatLockRepository {
	return &GormSeatLockRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSeatLockRepository) WithTx(tx *gorm.DB) *GormSeatLockRepository {
	if tx == nil {
		return r
	}
	return &GormSeatLockRepository{db: tx}
}

// Create 创建锁座记录
func (r *GormSeatLockRepository) Create(lock *models.SeatLock) error {
	return r.db.Create(lock).Error
}

// GetByID 根据 ID 获取锁座记录
func (r *GormSeatLockRepository) GetByID(id string) (*models.SeatLock, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var lock models.SeatLock
	if err := r.db.Where("id = ?", id).First(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// GetByIDAndUser 获取用户自己的锁座记录
func (r *GormSeatLockRepository) GetByIDAndUser(id, userID string) (*models.SeatLock, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	var lock models.SeatLock
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lock, nil
}

// ConsumeActive 条件更新：仅当锁仍处于 active 且未过期时标记为已消费
func (r *GormSeatLockRepository) ConsumeActive(id, orderID string, now time.Time) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, errors.New("invalid seat lock consume params")
	}
	result := r.db.Model(&models.SeatLock{}).
		Where("id = ? AND state = ? AND expires_at >= ?", id, constants.SeatLockStateActive, now).
		Updates(map[string]interface{}{
			"state":       constants.SeatLockStateConsumed,
			"order_id":    orderID,
			"consumed_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireActive 条件更新：仅当锁仍处于 active 且已超过有效期时标记为过期
func (r *GormSeatLockRepository) ExpireActive(id string, now time.Time) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, errors.New("invalid seat lock expire params")
	}
	result := r.db.Model(&models.SeatLock{}).
		Where("id = ? AND state = ? AND expires_at < ?", id, constants.SeatLockStateActive, now).
		Updates(map[string]interface{}{
			"state":      constants.SeatLockStateExpired,
			"expired_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListDueActive 列出已到期但仍为 active 的锁座，按到期时间升序
func (r *GormSeatLockRepository) ListDueActive(now time.Time, limit int) ([]models.SeatLock, error) {
	var locks []models.SeatLock
	query := r.db.Where("state = ? AND expires_at < ?", constants.SeatLockStateActive, now).
		Order("expires_at asc").
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&locks).Error; err != nil {
		return nil, err
	}
	return locks, nil
}
