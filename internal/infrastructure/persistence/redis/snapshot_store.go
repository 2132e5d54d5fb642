package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

// SnapshotStore 库存快照存储
// Key设计:snapshot:{product_id} → 上次可售总量(字符串化整数)
// 每轮审计覆盖写并刷新TTL,过期自动清理,无需手动回收
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(productID int64) string {
	return fmt.Sprintf("snapshot:%d", productID)
}

// Get 读取快照
// found=false表示无快照(首次见到该商品或TTL已过期)
func (s *SnapshotStore) Get(ctx context.Context, productID int64) (int, bool, error) {
	val, err := s.client.Get(ctx, snapshotKey(productID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.Wrap(err, "读取库存快照失败")
	}

	qty, err := strconv.Atoi(val)
	if err != nil {
		// 脏数据当作无快照,本轮会覆盖写修复
		return 0, false, nil
	}
	return qty, true, nil
}

// Set 覆盖写快照(带TTL)
func (s *SnapshotStore) Set(ctx context.Context, productID int64, qty int) error {
	if err := s.client.Set(ctx, snapshotKey(productID), strconv.Itoa(qty), s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入库存快照失败")
	}
	return nil
}
