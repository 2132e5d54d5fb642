package waitlist

import (
	"context"
)

// Store 订阅者列表存储接口(依赖倒置原则)
// 由domain层定义,infrastructure层(redis)实现
//
// 双键约定:列表同时存在ID键和handle键下,两条查找路径都要能命中
// Load合并两个键的内容;Save把合并结果写回两个键,保持一致
type Store interface {
	// Load 读取并按联系身份合并两个存储键下的列表
	Load(ctx context.Context, productID int64, handle string) ([]*Subscriber, error)

	// Save 把完整列表写回两个键(带TTL)
	Save(ctx context.Context, productID int64, handle string, subs []*Subscriber) error
}
