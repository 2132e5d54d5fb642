package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

// SubscriberStore 订阅者列表存储
// 设计说明:
// 1. 双键冗余:waitlist:id:{product_id} 和 waitlist:handle:{handle}
//    报名入口按handle写,审计按ID读,两条路径都要能命中
// 2. Load合并两个键的内容(联系身份去重,较新者胜)
// 3. Save把合并结果写回两个键,保持一致;TTL 90天,过期自动清理
type SubscriberStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubscriberStore 创建订阅者存储
func NewSubscriberStore(client *redis.Client, ttl time.Duration) *SubscriberStore {
	return &SubscriberStore{client: client, ttl: ttl}
}

func idKey(productID int64) string {
	return fmt.Sprintf("waitlist:id:%d", productID)
}

func handleKey(handle string) string {
	return fmt.Sprintf("waitlist:handle:%s", handle)
}

// Load 读取并合并两个键下的列表
// ID键作为合并的primary(平局优先),见waitlist.Merge
func (s *SubscriberStore) Load(ctx context.Context, productID int64, handle string) ([]*waitlist.Subscriber, error) {
	primary, err := s.loadKey(ctx, idKey(productID))
	if err != nil {
		return nil, err
	}

	var secondary []*waitlist.Subscriber
	if handle != "" {
		secondary, err = s.loadKey(ctx, handleKey(handle))
		if err != nil {
			return nil, err
		}
	}

	return waitlist.Merge(primary, secondary), nil
}

// Save 把完整列表写回两个键
func (s *SubscriberStore) Save(ctx context.Context, productID int64, handle string, subs []*waitlist.Subscriber) error {
	payload, err := json.Marshal(subs)
	if err != nil {
		return apperrors.Wrap(err, "序列化订阅者列表失败")
	}

	if err := s.client.Set(ctx, idKey(productID), payload, s.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入订阅者列表(ID键)失败")
	}
	if handle != "" {
		if err := s.client.Set(ctx, handleKey(handle), payload, s.ttl).Err(); err != nil {
			return apperrors.Wrap(err, "写入订阅者列表(handle键)失败")
		}
	}
	return nil
}

// loadKey 读单个键,缺失返回空列表
func (s *SubscriberStore) loadKey(ctx context.Context, key string) ([]*waitlist.Subscriber, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "读取订阅者列表失败")
	}

	var subs []*waitlist.Subscriber
	if err := json.Unmarshal(val, &subs); err != nil {
		return nil, apperrors.Wrap(err, "解析订阅者列表失败")
	}
	return subs, nil
}
