package models

import "time"

// Order 车票订单
type Order struct {
	ID              string        `gorm:"primaryKey;type:varchar(64)" json:"order_id"`                // 订单ID
	UserID          string        `gorm:"type:varchar(64);index;not null" json:"user_id"`             // 下单用户
	LockID          *string       `gorm:"type:varchar(64);uniqueIndex" json:"lock_id,omitempty"`      // 消费的锁座ID
	TrainID         string        `gorm:"type:varchar(32);not null" json:"train_id"`                  // 车次
	TravelDate      string        `gorm:"type:varchar(10);not null" json:"travel_date"`               // 乘车日期
	SeatClass       string        `gorm:"type:varchar(32);not null" json:"seat_class"`                // 席别
	Route           string        `gorm:"type:varchar(255)" json:"route"`                             // 行程描述，用于关键字检索
	Passengers      PassengerList `gorm:"type:text;not null" json:"passengers"`                       // 乘车人
	UnitPrice       Money         `gorm:"type:decimal(20,2);not null" json:"unit_price"`              // 单价
	InsuranceFee    Money         `gorm:"type:decimal(20,2);not null;default:0" json:"insurance_fee"` // 保险费
	TotalPrice      Money         `gorm:"type:decimal(20,2);not null" json:"total_price"`             // 总价
	Currency        string        `gorm:"type:varchar(8);not null" json:"currency"`                   // 币种
	Status          string        `gorm:"type:varchar(32);index:idx_order_status_deadline;not null" json:"status"`
	PaymentDeadline time.Time     `gorm:"index:idx_order_status_deadline;not null" json:"payment_deadline"` // 支付截止时间
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	ExpiredAt       *time.Time    `json:"expired_at,omitempty"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// SeatCount 订单占用的座位数
func (o *Order) SeatCount() int {
	if o == nil {
		return 0
	}
	return len(o.Passengers)
}
