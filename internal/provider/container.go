package provider

import (
	"time"

	"github.com/railbook-next/internal/cache"
	"github.com/railbook-next/internal/clock"
	"github.com/railbook-next/internal/config"
	"github.com/railbook-next/internal/events"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/models"
	"github.com/railbook-next/internal/payment/channel"
	"github.com/railbook-next/internal/payment/signature"
	"github.com/railbook-next/internal/queue"
	"github.com/railbook-next/internal/repository"
	"github.com/railbook-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Publisher   events.Publisher
	Emitter     *service.BookingEventEmitter

	// Repositories
	SeatLockRepo repository.SeatLockRepository
	OrderRepo    repository.OrderRepository
	PaymentRepo  repository.PaymentRepository

	// Collaborators
	Inventory service.InventoryChecker
	Channels  *channel.Registry
	Verifier  *signature.Router

	// Services
	PricingEngine   *service.PricingEngine
	SeatLockService *service.SeatLockService
	OrderService    *service.OrderService
	PaymentService  *service.PaymentService
	TokenService    *service.UserTokenService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化外部协作方
	c.initCollaborators()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.SeatLockRepo = repository.NewSeatLockRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
}

func (c *Container) initCollaborators() {
	publisher, err := events.NewPublisher(c.Config.Events)
	if err != nil {
		logger.Errorw("provider_init_event_publisher_failed", "driver", c.Config.Events.Driver, "error", err)
		panic(err)
	}
	c.Publisher = publisher
	c.Emitter = service.NewBookingEventEmitter(publisher, c.QueueClient)

	inventory, err := service.NewInventoryChecker(c.Config.Inventory)
	if err != nil {
		logger.Errorw("provider_init_inventory_failed", "driver", c.Config.Inventory.Driver, "error", err)
		panic(err)
	}
	c.Inventory = inventory

	c.Channels = channel.NewRegistry(c.Config.Payment)
	verifier, err := signature.NewRouter(c.Config.Payment)
	if err != nil {
		logger.Errorw("provider_init_signature_router_failed", "error", err)
		panic(err)
	}
	c.Verifier = verifier
}

func (c *Container) initServices() {
	booking := c.Config.Booking
	clk := clock.Real()
	ids := clock.UUIDGenerator{}

	c.PricingEngine = service.NewPricingEngine()
	c.SeatLockService = service.NewSeatLockService(c.SeatLockRepo, c.Inventory, c.QueueClient, c.Emitter, service.SeatLockOptions{
		TTL:              clock.Minutes(booking.LockTTLMinutes, 15),
		MaxSeatsPerLock:  booking.MaxSeatsPerLock,
		InventoryTimeout: time.Duration(c.Config.Inventory.TimeoutMS) * time.Millisecond,
		InventoryRetries: c.Config.Inventory.Retries,
		Clock:            clk,
		IDs:              ids,
	})
	c.OrderService = service.NewOrderService(c.OrderRepo, c.SeatLockService, c.PricingEngine, c.QueueClient, c.Emitter, service.OrderOptions{
		PaymentWindow: clock.Minutes(booking.PaymentWindowMinutes, 30),
		Currency:      c.Config.Payment.Currency,
		PageSize:      booking.PageSize,
		Clock:         clk,
		IDs:           ids,
	})
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.OrderRepo, c.Channels, c.Verifier, c.Emitter, service.PaymentOptions{
		NotifyURL: c.Config.Payment.NotifyURL,
		ReturnURL: c.Config.Payment.ReturnURL,
		Clock:     clk,
		IDs:       ids,
	})
	c.TokenService = service.NewUserTokenService(c.Config.JWT, clk)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Warnw("provider_close_event_publisher_failed", "error", err)
		}
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
