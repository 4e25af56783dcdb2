package public

import (
	"time"

	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AcquireSeatLockRequest 锁座请求
type AcquireSeatLockRequest struct {
	TrainID    string `json:"train_id" binding:"required"`
	TravelDate string `json:"travel_date" binding:"required"`
	SeatClass  string `json:"seat_class" binding:"required"`
	SeatCount  int    `json:"seat_count" binding:"required"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// AcquireSeatLock 查询余票并锁定席位
func (h *Handler) AcquireSeatLock(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req AcquireSeatLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	lock, err := h.SeatLockService.Acquire(c.Request.Context(), service.AcquireSeatLockInput{
		UserID:     uid,
		TrainID:    req.TrainID,
		TravelDate: req.TravelDate,
		SeatClass:  req.SeatClass,
		SeatCount:  req.SeatCount,
		TTL:        time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		respondSeatLockError(c, err)
		return
	}

	response.Success(c, lock)
}

// GetSeatLock 获取当前用户的锁座详情
func (h *Handler) GetSeatLock(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	lock, err := h.SeatLockService.GetForUser(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondWithMappedError(c, err, seatLockErrorRules, "error.internal")
		return
	}

	response.Success(c, lock)
}
