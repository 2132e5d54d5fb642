package ratelimit

import (
	"context"
	"testing"
	"time"
)

// TestPacer_Spacing 测试相邻调用的最小间隔
func TestPacer_Spacing(t *testing.T) {
	p := NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("期望Wait成功，实际失败: %v", err)
		}
	}
	elapsed := time.Since(start)

	// 3次调用=2个间隔,至少100ms
	if elapsed < 100*time.Millisecond {
		t.Errorf("期望总耗时>=100ms，实际%v", elapsed)
	}
}

// TestPacer_Disabled 测试interval<=0时不节流
func TestPacer_Disabled(t *testing.T) {
	p := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("期望Wait成功，实际失败: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("不节流时期望立即返回，实际耗时%v", elapsed)
	}
}

// TestPacer_ContextCancel 测试等待期间context取消
func TestPacer_ContextCancel(t *testing.T) {
	p := NewPacer(1 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	_ = p.Wait(ctx) // 第一次立即放行
	cancel()

	if err := p.Wait(ctx); err != context.Canceled {
		t.Errorf("期望返回context.Canceled，实际%v", err)
	}
}

// TestBackoff_Exponential 测试指数退避
func TestBackoff_Exponential(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		Base:        100 * time.Millisecond,
		Max:         1 * time.Second,
		Jitter:      0, // 关闭抖动方便断言
		MaxAttempts: 3,
	})

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{10, 1 * time.Second}, // 超过上限截断
	}

	for _, tc := range cases {
		if got := b.Delay(tc.attempt, 0); got != tc.want {
			t.Errorf("attempt=%d 期望%v，实际%v", tc.attempt, tc.want, got)
		}
	}
}

// TestBackoff_RetryAfter 测试服务端Retry-After优先
func TestBackoff_RetryAfter(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		Base:        100 * time.Millisecond,
		Max:         5 * time.Second,
		MaxAttempts: 3,
	})

	// 服务端指定2s,覆盖指数计算
	if got := b.Delay(0, 2*time.Second); got != 2*time.Second {
		t.Errorf("期望遵循Retry-After=2s，实际%v", got)
	}

	// 服务端指定值超过Max时仍原样遵循(Max只约束指数计算,不约束服务端指令)
	if got := b.Delay(0, 10*time.Second); got != 10*time.Second {
		t.Errorf("期望遵循Retry-After=10s，实际%v", got)
	}
}

// TestBackoff_JitterBounds 测试抖动范围
func TestBackoff_JitterBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		Base:        100 * time.Millisecond,
		Max:         10 * time.Second,
		Jitter:      50 * time.Millisecond,
		MaxAttempts: 3,
	})

	for i := 0; i < 50; i++ {
		d := b.Delay(0, 0)
		if d < 100*time.Millisecond || d >= 150*time.Millisecond {
			t.Fatalf("期望延迟在[100ms,150ms)区间，实际%v", d)
		}
	}
}
