package models

import "time"

// PaymentOrder 支付单
type PaymentOrder struct {
	ID                string     `gorm:"primaryKey;type:varchar(64)" json:"payment_id"`      // 支付单ID
	OrderID           string     `gorm:"type:varchar(64);index;not null" json:"order_id"`    // 所属订单
	UserID            string     `gorm:"type:varchar(64);index;not null" json:"user_id"`     // 支付用户
	Channel           string     `gorm:"type:varchar(32);not null" json:"channel"`           // 支付渠道
	InteractionMode   string     `gorm:"type:varchar(16);not null" json:"interaction_mode"`  // 交互方式（qr/app/redirect）
	Amount            Money      `gorm:"type:decimal(20,2);not null" json:"amount"`          // 支付金额
	Currency          string     `gorm:"type:varchar(8);not null" json:"currency"`           // 币种
	Status            string     `gorm:"type:varchar(16);index;not null" json:"status"`      // 支付状态
	RedirectURL       string     `gorm:"type:text" json:"redirect_url"`                      // 跳转链接/二维码内容
	LastTransactionID string     `gorm:"type:varchar(128);index" json:"last_transaction_id"` // 最近一次回调流水号
	FailureReason     string     `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`  // 失败原因
	Version           int64      `gorm:"not null;default:0" json:"-"`                        // 乐观锁版本
	CallbackAt        *time.Time `json:"callback_at,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (PaymentOrder) TableName() string {
	return "payment_orders"
}
