package constants

// 锁座状态常量
const (
	SeatLockStateActive   = "active"
	SeatLockStateConsumed = "consumed"
	SeatLockStateExpired  = "expired"
)

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusCancelled      = "cancelled"
	OrderStatusExpired        = "expired"
)

// 支付状态常量
const (
	PaymentStatusInitiated = "initiated"
	PaymentStatusPending   = "pending"
	PaymentStatusSuccess   = "success"
	PaymentStatusFailed    = "failed"
)

// 支付渠道常量
const (
	PaymentChannelWechat    = "wechat"
	PaymentChannelWechatApp = "wechat_app"
	PaymentChannelAlipay    = "alipay"
	PaymentChannelAlipayApp = "alipay_app"
	PaymentChannelBankCard  = "bank_card"
)

// 支付交互方式常量
const (
	PaymentInteractionQR       = "qr"
	PaymentInteractionApp      = "app"
	PaymentInteractionRedirect = "redirect"
)

// 证件类型常量
const (
	CertificateTypeNationalID = "national_id"
	CertificateTypePassport   = "passport"
	CertificateTypePermit     = "permit"
)

// 席别常量（仅用于参数归一化，不限制取值）
const (
	SeatClassBusiness    = "business"
	SeatClassFirst       = "first"
	SeatClassSecond      = "second"
	SeatClassHardSleeper = "hard_sleeper"
	SeatClassSoftSleeper = "soft_sleeper"
	SeatClassHardSeat    = "hard_seat"
)

// 库存查询驱动
const (
	InventoryDriverUnlimited = "unlimited"
	InventoryDriverHTTP      = "http"
)

// 事件驱动
const (
	EventsDriverNone     = "none"
	EventsDriverKafka    = "kafka"
	EventsDriverRabbitMQ = "rabbitmq"
)

// 领域事件类型
const (
	EventOrderCreated     = "order.created"
	EventOrderPaid        = "order.paid"
	EventOrderCancelled   = "order.cancelled"
	EventOrderExpired     = "order.expired"
	EventSeatLockExpired  = "seat_lock.expired"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 任务类型常量
const (
	TaskSeatLockExpire     = "booking:seat_lock_expire"
	TaskOrderExpire        = "booking:order_expire"
	TaskBookingEventNotify = "booking:event_notify"
)

// 日期格式
const (
	TravelDateLayout = "2006-01-02"
)
