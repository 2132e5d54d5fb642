// Package ratelimit 提供外部API调用的节流原语
//
// 两个角色:
// 1. Pacer（节拍器）：保证相邻两次调用之间有最小间隔
//   - 上游平台的限流是按账号计的,所以整个进程共享一个Pacer实例
//   - 实例由API客户端持有,通过依赖注入传递,不使用包级可变状态
//
// 2. Backoff（退避器）：429/网络错误后的等待策略
//   - 指数退避 + 随机抖动(避免多个实例同步重试造成雪崩)
//   - 服务端给出Retry-After时优先遵循服务端
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer 最小间隔节拍器
// 并发安全:Wait内部持锁计算下一次允许调用的时间点
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration // 相邻调用最小间隔
	last     time.Time     // 上一次调用放行时间
}

// NewPacer 创建节拍器
// interval<=0 表示不节流
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait 阻塞到允许下一次调用
// 说明:先持锁预定好本次调用的时间槽再睡眠,保证多goroutine下槽位不重叠
// (引擎本身是单worker,这里的并发安全是给测试和未来扩展的)
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	next := p.last.Add(p.interval)
	if next.Before(now) {
		next = now
	}
	p.last = next
	p.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	// Base 首次重试前的基础等待
	// 建议值：500ms-1s
	Base time.Duration

	// Max 指数计算的单次等待上限（防止指数爆炸;不约束服务端Retry-After）
	// 建议值：10s-30s
	Max time.Duration

	// Jitter 抖动上限（在计算结果上额外加 [0, Jitter) 的随机量）
	Jitter time.Duration

	// MaxAttempts 最大尝试次数（含首次）
	// 建议值：3
	MaxAttempts int
}

// Backoff 退避器
type Backoff struct {
	cfg BackoffConfig
	rnd *rand.Rand
	mu  sync.Mutex
}

// NewBackoff 创建退避器
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Base <= 0 {
		cfg.Base = 500 * time.Millisecond
	}
	if cfg.Max <= 0 {
		cfg.Max = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Backoff{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// MaxAttempts 最大尝试次数
func (b *Backoff) MaxAttempts() int {
	return b.cfg.MaxAttempts
}

// Delay 计算第attempt次失败后的等待时间(attempt从0开始)
// retryAfter>0 表示服务端通过Retry-After头指定了等待时间,原样遵循,
// 不受Max约束:提前重试只会再吃一个429(Max只约束本地的指数计算)
func (b *Backoff) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}

	d := b.cfg.Base << uint(attempt)
	if d > b.cfg.Max || d <= 0 {
		d = b.cfg.Max
	}

	if b.cfg.Jitter > 0 {
		b.mu.Lock()
		d += time.Duration(b.rnd.Int63n(int64(b.cfg.Jitter)))
		b.mu.Unlock()
	}
	return d
}

// Sleep 按Delay的结果等待,支持context取消
func (b *Backoff) Sleep(ctx context.Context, attempt int, retryAfter time.Duration) error {
	timer := time.NewTimer(b.Delay(attempt, retryAfter))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
