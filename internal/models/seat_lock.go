package models

import "time"

// SeatLock 锁座记录
type SeatLock struct {
	ID         string     `gorm:"primaryKey;type:varchar(64)" json:"lock_id"`                             // 锁座ID
	UserID     string     `gorm:"type:varchar(64);index;not null" json:"user_id"`                         // 持有人
	TrainID    string     `gorm:"type:varchar(32);index:idx_seat_lock_train;not null" json:"train_id"`    // 车次
	TravelDate string     `gorm:"type:varchar(10);index:idx_seat_lock_train;not null" json:"travel_date"` // 乘车日期 YYYY-MM-DD
	SeatClass  string     `gorm:"type:varchar(32);index:idx_seat_lock_train;not null" json:"seat_class"`  // 席别
	SeatCount  int        `gorm:"not null" json:"seat_count"`                                             // 锁定座位数
	State      string     `gorm:"type:varchar(16);index:idx_seat_lock_state_expire;not null" json:"state"`
	OrderID    string     `gorm:"type:varchar(64);index" json:"order_id,omitempty"` // 消费该锁的订单
	ExpiresAt  time.Time  `gorm:"index:idx_seat_lock_state_expire;not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	ExpiredAt  *time.Time `json:"expired_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (SeatLock) TableName() string {
	return "seat_locks"
}
