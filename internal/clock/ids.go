package clock

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID 前缀
const (
	PrefixSeatLock = "SL"
	PrefixOrder    = "OD"
	PrefixPayment  = "PY"
)

// IDGenerator 业务 ID 生成器
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDGenerator 基于 UUIDv4 的生成器
type UUIDGenerator struct{}

// NewID 生成 前缀+32位十六进制 的 ID
func (UUIDGenerator) NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(strings.TrimSpace(prefix)) + strings.ToUpper(raw)
}

// SequenceIDs 单调递增序列，测试中保证 ID 可预测
type SequenceIDs struct {
	counter atomic.Uint64
}

// NewID 生成 前缀+6位序号 的 ID
func (s *SequenceIDs) NewID(prefix string) string {
	n := s.counter.Add(1)
	return fmt.Sprintf("%s%06d", strings.ToUpper(strings.TrimSpace(prefix)), n)
}
