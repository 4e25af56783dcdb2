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

// ErrPaymentVersionConflict 乐观锁版本冲突
var ErrPaymentVersionConflict = errors.New("payment version conflict")

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.PaymentOrder) error
	UpdateWithVersion(payment *models.PaymentOrder) error
	GetByID(id string) (*models.PaymentOrder, error)
	GetByIDAndUser(id, userID string) (*models.PaymentOrder, error)
	GetByIDForUpdate(id string) (*models.PaymentOrder, error)
	ListByOrderID(orderID string) ([]models.PaymentOrder, error)
	GetSuccessByOrder(orderID string) (*models.PaymentOrder, error)
	ListNonTerminalByOrder(orderID string) ([]models.PaymentOrder, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.PaymentOrder) error {
	return r.db.Create(payment).Error
}

// UpdateWithVersion 按版本号更新支付记录，成功后版本号加一。
// 版本号不匹配时返回 ErrPaymentVersionConflict。
func (r *GormPaymentRepository) UpdateWithVersion(payment *models.PaymentOrder) error {
	if payment == nil || strings.TrimSpace(payment.ID) == "" {
		return errors.New("invalid payment update params")
	}
	now := payment.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	result := r.db.Model(&models.PaymentOrder{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(map[string]interface{}{
			"status":              payment.Status,
			"interaction_mode":    payment.InteractionMode,
			"redirect_url":        payment.RedirectURL,
			"last_transaction_id": payment.LastTransactionID,
			"failure_reason":      payment.FailureReason,
			"callback_at":         payment.CallbackAt,
			"paid_at":             payment.PaidAt,
			"version":             payment.Version + 1,
			"updated_at":          now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPaymentVersionConflict
	}
	payment.Version++
	payment.UpdatedAt = now
	return nil
}

// GetByID 根据 ID 获取支付记录
func (r *GormPaymentRepository) GetByID(id string) (*models.PaymentOrder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var payment models.PaymentOrder
	if err := r.db.Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDAndUser 获取用户自己的支付记录
func (r *GormPaymentRepository) GetByIDAndUser(id, userID string) (*models.PaymentOrder, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	var payment models.PaymentOrder
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByIDForUpdate 加行锁获取支付记录，需在事务内调用
func (r *GormPaymentRepository) GetByIDForUpdate(id string) (*models.PaymentOrder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var payment models.PaymentOrder
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListByOrderID 获取订单支付记录
func (r *GormPaymentRepository) ListByOrderID(orderID string) ([]models.PaymentOrder, error) {
	var payments []models.PaymentOrder
	if err := r.db.Where("order_id = ?", orderID).Order("created_at desc").Order("id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// GetSuccessByOrder 获取订单已成功的支付记录
func (r *GormPaymentRepository) GetSuccessByOrder(orderID string) (*models.PaymentOrder, error) {
	var payment models.PaymentOrder
	result := r.db.Where("order_id = ? AND status = ?", orderID, constants.PaymentStatusSuccess).
		Order("created_at desc").
		Limit(1).
		Find(&payment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &payment, nil
}

// ListNonTerminalByOrder 获取订单未终结（initiated/pending）的支付记录
func (r *GormPaymentRepository) ListNonTerminalByOrder(orderID string) ([]models.PaymentOrder, error) {
	var payments []models.PaymentOrder
	if err := r.db.Where("order_id = ? AND status IN ?", orderID,
		[]string{constants.PaymentStatusInitiated, constants.PaymentStatusPending},
	).Order("created_at desc").Order("id desc").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
