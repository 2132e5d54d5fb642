package catalog

import (
	"context"
)

// Reader 商品平台读接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(commerce包)
// 2. 便于Mock测试,不依赖真实平台API
type Reader interface {
	// ListProducts 按since_id游标分页拉取商品(字段投影,升序)
	// 返回数量小于limit表示没有更多商品
	ListProducts(ctx context.Context, sinceID int64, limit int) ([]*Product, error)

	// GetProduct 按ID拉取单个商品(含变体)
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// GetVariant 按ID拉取单个变体
	GetVariant(ctx context.Context, id int64) (*Variant, error)

	// InventoryLevels 查询一组库存项在所有位置的可售数量
	InventoryLevels(ctx context.Context, inventoryItemIDs []int64) ([]InventoryLevel, error)

	// BundleComponents 读取套装商品的组件声明
	// 来源优先级:结构化metafield声明 → 平台原生组合商品(GraphQL)
	// 声明格式非法时返回ErrMalformedComponents
	BundleComponents(ctx context.Context, p *Product) ([]ComponentSet, error)
}

// Writer 商品平台写接口
// 引擎对平台唯一的回写:状态标签与metafield,每轮原子覆盖
type Writer interface {
	// ReplaceTags 覆盖商品标签集
	ReplaceTags(ctx context.Context, productID int64, tags []string) error

	// UpsertMetafield 写入/更新商品metafield
	UpsertMetafield(ctx context.Context, productID int64, namespace, key, value string) error
}
