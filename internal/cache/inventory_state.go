package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// InventorySnapshot 余票快照
type InventorySnapshot struct {
	TrainID    string `json:"train_id"`
	TravelDate string `json:"travel_date"`
	SeatClass  string `json:"seat_class"`
	Remaining  int    `json:"remaining"`
	CheckedAt  int64  `json:"checked_at"`
}

func inventoryKey(trainID, travelDate, seatClass string) string {
	return fmt.Sprintf("inventory:%s:%s:%s",
		strings.ToUpper(strings.TrimSpace(trainID)),
		strings.TrimSpace(travelDate),
		strings.ToLower(strings.TrimSpace(seatClass)),
	)
}

// GetInventory 获取余票快照
func GetInventory(ctx context.Context, trainID, travelDate, seatClass string) (*InventorySnapshot, bool, error) {
	var snapshot InventorySnapshot
	hit, err := GetJSON(ctx, inventoryKey(trainID, travelDate, seatClass), &snapshot)
	if err != nil || !hit {
		return nil, false, err
	}
	return &snapshot, true, nil
}

// SetInventory 写入余票快照
func SetInventory(ctx context.Context, snapshot *InventorySnapshot, ttl time.Duration) error {
	if snapshot == nil || ttl <= 0 {
		return nil
	}
	if snapshot.CheckedAt == 0 {
		snapshot.CheckedAt = time.Now().Unix()
	}
	return SetJSON(ctx, inventoryKey(snapshot.TrainID, snapshot.TravelDate, snapshot.SeatClass), snapshot, ttl)
}

// InvalidateInventory 锁座或释放后删除余票快照
func InvalidateInventory(ctx context.Context, trainID, travelDate, seatClass string) error {
	return Del(ctx, inventoryKey(trainID, travelDate, seatClass))
}
