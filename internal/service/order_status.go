package service

import (
	"strings"

	"github.com/railbook-next/internal/constants"
	"github.com/railbook-next/internal/models"
)

var orderStatuses = map[string]struct{}{
	constants.OrderStatusPendingPayment: {},
	constants.OrderStatusPaid:           {},
	constants.OrderStatusCancelled:      {},
	constants.OrderStatusExpired:        {},
}

// normalizeOrderStatus 归一化订单状态，未知状态返回 false
func normalizeOrderStatus(raw string) (string, bool) {
	status := strings.ToLower(strings.TrimSpace(raw))
	if status == "" {
		return "", true
	}
	_, ok := orderStatuses[status]
	return status, ok
}

// isTerminalOrderStatus 已支付、已取消、已过期均为终态
func isTerminalOrderStatus(status string) bool {
	switch status {
	case constants.OrderStatusPaid, constants.OrderStatusCancelled, constants.OrderStatusExpired:
		return true
	default:
		return false
	}
}

// isTerminalPaymentStatus 成功与失败为终态
func isTerminalPaymentStatus(status string) bool {
	return status == constants.PaymentStatusSuccess || status == constants.PaymentStatusFailed
}

// isSupersededPayment 因切换渠道被本地置为失败的支付单，渠道侧并未关单
func isSupersededPayment(payment *models.PaymentOrder) bool {
	return payment != nil &&
		payment.Status == constants.PaymentStatusFailed &&
		payment.FailureReason == paymentSupersededReason
}

// seatReleaseEventData 订单释放座位时携带的余票信息
func seatReleaseEventData(order *models.Order) map[string]interface{} {
	data := map[string]interface{}{
		"train_id":    order.TrainID,
		"travel_date": order.TravelDate,
		"seat_class":  order.SeatClass,
		"seat_count":  order.SeatCount(),
		"status":      order.Status,
	}
	if order.LockID != nil {
		data["lock_id"] = *order.LockID
	}
	return data
}

func inventoryQueryOf(order *models.Order) InventoryQuery {
	return InventoryQuery{TrainID: order.TrainID, TravelDate: order.TravelDate, SeatClass: order.SeatClass}
}
