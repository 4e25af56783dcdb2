package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	GetByIDAndUser(id, userID string) (*models.Order, error)
	GetByIDForUpdate(id string) (*models.Order, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	TransitionStatus(id, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	ListDuePending(now time.Time, limit int) ([]models.Order, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndUser 获取用户订单详情
func (r *GormOrderRepository) GetByIDAndUser(id, userID string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 加行锁获取订单，需在事务内调用
func (r *GormOrderRepository) GetByIDForUpdate(id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"id", "route"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("created_at desc").Order("id asc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// TransitionStatus 条件更新订单状态，仅当当前状态为 fromStatus 时生效
func (r *GormOrderRepository) TransitionStatus(id, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	if strings.TrimSpace(id) == "" || fromStatus == "" || toStatus == "" {
		return 0, errors.New("invalid order transition params")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListDuePending 列出支付截止时间已过的待支付订单
func (r *GormOrderRepository) ListDuePending(now time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.Where("status = ? AND payment_deadline < ?", constants.OrderStatusPendingPayment, now).
		Order("payment_deadline asc").
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
