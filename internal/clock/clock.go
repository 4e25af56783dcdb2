package clock

import (
	"sync"
	"time"
)

// Clock 时间源
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real 返回系统时钟（统一 UTC）
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Fake 可手动推进的时钟，测试使用
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake 创建固定起点的时钟
func NewFake(start time.Time) *Fake {
	return &Fake{now: start.UTC()}
}

// Now 当前时间
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance 推进时间
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// Set 设置为指定时间
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// Deadline 计算截止时间，ttl 非正数时使用 fallback
func Deadline(from time.Time, ttl, fallback time.Duration) time.Time {
	if ttl <= 0 {
		ttl = fallback
	}
	return from.Add(ttl)
}

// Passed 判断截止时间是否已过（严格大于）
func Passed(now, deadline time.Time) bool {
	return now.After(deadline)
}

// Remaining 剩余时长，已过期返回 0
func Remaining(now, deadline time.Time) time.Duration {
	if !deadline.After(now) {
		return 0
	}
	return deadline.Sub(now)
}

// Minutes 分钟数转时长，非正数时使用 fallback 分钟
func Minutes(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Minute
}
