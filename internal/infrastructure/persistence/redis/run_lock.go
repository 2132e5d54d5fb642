package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

const lockKey = "audit:lock"

// 只释放自己持有的锁:value不匹配时不删
// (锁过期后被别的实例抢到,本实例的延迟Release不能误删对方的锁)
const releaseLua = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RunLock 审计运行锁
// 设计说明:
// 1. SET NX + TTL:同一时刻至多一轮审计
// 2. TTL(15分钟)大于最坏单轮耗时,持有者崩溃后锁自然过期(崩溃恢复)
// 3. 抢不到锁快速失败,不排队不重试,由外部调度器稍后再触发
// 4. value是本次持有的随机token,释放时校验,避免误删他人的锁
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

// NewRunLock 创建运行锁
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// Acquire 尝试获取锁
// 返回false表示锁已被占用(调用方应返回"已在运行"信号)
func (l *RunLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "获取运行锁失败")
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release 释放锁(仅释放自己持有的)
// 在所有退出路径上defer调用,成功失败都要释放
func (l *RunLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	if err := l.client.Eval(ctx, releaseLua, []string{lockKey}, token).Err(); err != nil {
		return apperrors.Wrap(err, "释放运行锁失败")
	}
	return nil
}

// ForceRelease 无条件删除锁(运维工具auditctl用,日常路径勿用)
func (l *RunLock) ForceRelease(ctx context.Context) error {
	if err := l.client.Del(ctx, lockKey).Err(); err != nil {
		return apperrors.Wrap(err, "强制释放运行锁失败")
	}
	return nil
}
