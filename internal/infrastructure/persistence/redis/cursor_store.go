package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

const cursorKey = "audit:cursor"

// CursorStore 续跑游标存储
// 单键:audit:cursor → 上次处理到的商品ID
// 不变量:缺失或0表示从头开始;TTL防止陈旧游标跨太久复活
type CursorStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCursorStore 创建游标存储
func NewCursorStore(client *redis.Client, ttl time.Duration) *CursorStore {
	return &CursorStore{client: client, ttl: ttl}
}

// Get 读取游标,缺失返回0(从头开始)
func (s *CursorStore) Get(ctx context.Context) (int64, error) {
	val, err := s.client.Get(ctx, cursorKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Wrap(err, "读取游标失败")
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil // 脏数据当作从头开始
	}
	return id, nil
}

// Set 写入游标(带TTL)
func (s *CursorStore) Set(ctx context.Context, sinceID int64) error {
	if err := s.client.Set(ctx, cursorKey, strconv.FormatInt(sinceID, 10), s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入游标失败")
	}
	return nil
}

// Clear 清除游标(整轮扫完,下次从头开始)
func (s *CursorStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, cursorKey).Err(); err != nil {
		return apperrors.Wrap(err, "清除游标失败")
	}
	return nil
}
