package catalog

import (
	"context"
	"strings"
)

// Resolver 可售库存解析器
// 设计说明:
// 1. 每轮审计创建一个新实例,缓存随实例生命周期失效(不跨轮)
// 2. 在商品、变体、库存项三个粒度做记忆化,约束上游API调用量:
//    同一轮内重复询问同一对象不会产生新的上游调用
// 3. 顺带维护本轮的SKU索引,供套装组件的SKU解析使用
type Resolver struct {
	reader Reader

	productTotals map[int64]int // 商品ID → 可售总量
	variantQtys   map[int64]int // 变体ID → 可售数量
	itemLevels    map[int64]int // 库存项ID → 各位置available之和
	skuIndex      *SKUIndex
}

// NewResolver 创建解析器(每轮一个)
func NewResolver(reader Reader) *Resolver {
	return &Resolver{
		reader:        reader,
		productTotals: make(map[int64]int),
		variantQtys:   make(map[int64]int),
		itemLevels:    make(map[int64]int),
		skuIndex:      NewSKUIndex(),
	}
}

// SKUIndex 本轮的SKU索引
func (r *Resolver) SKUIndex() *SKUIndex {
	return r.skuIndex
}

// SellableQuantity 计算变体的可售数量
// 策略(固定口径,勿随意更改):
// 1. 未使用平台追踪库存的变体 → 0(未追踪视为不可售)
// 2. 汇总该库存项在所有位置的available
// 3. 位置查询无结果 → 回退到变体自带的数量字段
func (r *Resolver) SellableQuantity(ctx context.Context, v *Variant) (int, error) {
	if qty, ok := r.variantQtys[v.ID]; ok {
		return qty, nil
	}

	if !v.Tracked() {
		r.variantQtys[v.ID] = 0
		return 0, nil
	}

	qty, found, err := r.itemAvailable(ctx, v.InventoryItemID)
	if err != nil {
		return 0, err
	}
	if !found {
		// 兜底:位置查询无结果时用变体自带字段
		qty = v.InventoryQuantity
	}

	r.variantQtys[v.ID] = qty
	return qty, nil
}

// ProductSellableTotal 商品可售总量(所有变体之和)
// 副作用:把商品的变体登记进本轮SKU索引
func (r *Resolver) ProductSellableTotal(ctx context.Context, p *Product) (int, error) {
	r.Observe(p)

	if total, ok := r.productTotals[p.ID]; ok {
		return total, nil
	}

	total := 0
	for i := range p.Variants {
		qty, err := r.SellableQuantity(ctx, &p.Variants[i])
		if err != nil {
			return 0, err
		}
		total += qty
	}

	r.productTotals[p.ID] = total
	return total, nil
}

// Observe 把商品的变体登记进SKU索引
// 分页遍历时对每个见到的商品调用,索引随遍历增长
func (r *Resolver) Observe(p *Product) {
	for i := range p.Variants {
		r.skuIndex.Add(&p.Variants[i])
	}
}

// itemAvailable 库存项在所有位置的available之和(带记忆化)
// 返回found=false表示位置查询无结果(调用方走兜底逻辑)
func (r *Resolver) itemAvailable(ctx context.Context, itemID int64) (int, bool, error) {
	if itemID == 0 {
		return 0, false, nil
	}
	if sum, ok := r.itemLevels[itemID]; ok {
		return sum, true, nil
	}

	levels, err := r.reader.InventoryLevels(ctx, []int64{itemID})
	if err != nil {
		return 0, false, err
	}
	if len(levels) == 0 {
		return 0, false, nil
	}

	sum := 0
	for _, l := range levels {
		sum += l.Available
	}
	r.itemLevels[itemID] = sum
	return sum, true, nil
}

// =========================================
// SKU索引
// =========================================

// SKUIndex 归一化SKU → 变体 的索引
// 作用域:单轮审计。随分页遍历增量填充,只覆盖本轮已见过的商品。
// 已知局限:不是全目录搜索,排在后面页的组件SKU可能查不到
// (跨轮持久化该索引是未来可能的优化,当前不以其为正确性前提)
type SKUIndex struct {
	bySKU map[string]*Variant
}

// NewSKUIndex 创建空索引
func NewSKUIndex() *SKUIndex {
	return &SKUIndex{bySKU: make(map[string]*Variant)}
}

// Add 登记变体(空SKU忽略;同SKU先见者保留)
func (i *SKUIndex) Add(v *Variant) {
	key := normalizeSKU(v.SKU)
	if key == "" {
		return
	}
	if _, exists := i.bySKU[key]; !exists {
		i.bySKU[key] = v
	}
}

// Lookup 按SKU查找变体
func (i *SKUIndex) Lookup(sku string) (*Variant, bool) {
	v, ok := i.bySKU[normalizeSKU(sku)]
	return v, ok
}

// Len 索引大小
func (i *SKUIndex) Len() int {
	return len(i.bySKU)
}

// normalizeSKU SKU归一化:去空白+大写
func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
