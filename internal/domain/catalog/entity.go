package catalog

import (
	"strings"
)

// Product 商品实体
// 设计说明:
// 1. 商品由商品平台维护,对本引擎是只读视图
// 2. 引擎唯一的回写是状态标签和metafield(每轮审计原子覆盖)
// 3. 套装(bundle)身份通过标签约定推断:`bundle`或`bundle-*`前缀
type Product struct {
	ID          int64
	Handle      string // URL友好的唯一标识
	Title       string
	Tags        []string
	Variants    []Variant
	RestockDate string // 平台自定义字段里的预计到货日(可为空,仅透传给营销模板)
}

// IsBundle 是否为套装商品(标签约定)
// 状态标签本身也是bundle-*前缀,所以打过状态标签的商品身份保持稳定
func (p *Product) IsBundle() bool {
	for _, t := range p.Tags {
		if t == "bundle" || strings.HasPrefix(t, "bundle-") {
			return true
		}
	}
	return false
}

// HasTag 是否含有指定标签
func (p *Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// URL 商品前台路径(营销模板用)
func (p *Product) URL() string {
	return "/products/" + p.Handle
}

// Variant 商品变体
// 只读视图:库存追踪标志、库存项引用、原始数量兜底字段
type Variant struct {
	ID                  int64
	ProductID           int64
	SKU                 string
	Title               string
	InventoryManagement string // 非空表示使用平台追踪库存
	InventoryItemID     int64
	InventoryQuantity   int // 变体自带的数量字段(位置查询无结果时兜底)
}

// Tracked 是否使用平台追踪库存
func (v *Variant) Tracked() bool {
	return v.InventoryManagement != ""
}

// InventoryLevel 某库存项在某位置的可售数量
type InventoryLevel struct {
	InventoryItemID int64
	LocationID      int64
	Available       int
}

// BundleComponent 套装组件声明
// 三种引用方式按优先级解析,见Evaluator:
// 1. VariantID: 显式变体引用,直接使用
// 2. ProductID: 商品引用,仅当该商品恰好只有一个变体时可解析
// 3. SKU: 在本轮已见变体的索引中查找(尽力而为)
// Quantity 需要的数量,>=1(缺省1,向下取整)
type BundleComponent struct {
	VariantID int64  `json:"variant_id,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// Need 组件需求数量(缺省1,floor到>=1)
func (c BundleComponent) Need() int {
	if c.Quantity < 1 {
		return 1
	}
	return c.Quantity
}

// ComponentSet 套装某个变体级别的组件集合
type ComponentSet struct {
	VariantID  int64
	Components []BundleComponent
}

// =========================================
// 套装状态
// =========================================

// BundleStatus 套装状态枚举
// 排序(坏→好):out-of-stock > understocked > ok
// 商品最终状态取所有变体中最坏的一个
type BundleStatus int

const (
	// StatusOK 所有组件充足
	StatusOK BundleStatus = iota
	// StatusUnderstocked 有组件数量不足(含无法解析的组件)
	StatusUnderstocked
	// StatusOutOfStock 有已解析组件可售数量为0
	StatusOutOfStock
)

// String 状态转标签后缀
func (s BundleStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUnderstocked:
		return "understocked"
	case StatusOutOfStock:
		return "out-of-stock"
	default:
		return "unknown"
	}
}

// Tag 状态对应的商品标签
func (s BundleStatus) Tag() string {
	return "bundle-" + s.String()
}

// Worse 返回两个状态中较坏的一个
func Worse(a, b BundleStatus) BundleStatus {
	if b > a {
		return b
	}
	return a
}

// ParseStatus 标签后缀 → 状态
func ParseStatus(s string) (BundleStatus, bool) {
	switch s {
	case "ok":
		return StatusOK, true
	case "understocked":
		return StatusUnderstocked, true
	case "out-of-stock":
		return StatusOutOfStock, true
	default:
		return StatusOK, false
	}
}

// 引擎在平台侧的metafield命名空间与键
// 状态与可组装总量每轮覆盖写;components是商家声明的组件结构
const (
	MetafieldNamespace   = "stockwatch"
	MetafieldComponents  = "components"
	MetafieldStatus      = "bundle_status"
	MetafieldBuildable   = "buildable_total"
	MetafieldRestockDate = "restock_date"
)

// statusTags 所有状态标签(覆盖写时先剔除旧的)
var statusTags = map[string]BundleStatus{
	"bundle-ok":           StatusOK,
	"bundle-understocked": StatusUnderstocked,
	"bundle-out-of-stock": StatusOutOfStock,
}

// StatusFromTags 从商品现有标签读出上一轮写入的状态
// 用途:套装路径的通知触发条件(状态转变);每轮只读一次
func StatusFromTags(p *Product) (BundleStatus, bool) {
	for _, t := range p.Tags {
		if s, ok := statusTags[t]; ok {
			return s, true
		}
	}
	return StatusOK, false
}

// ReplaceStatusTag 生成覆盖写后的完整标签集
// 剔除旧状态标签,追加新状态标签,其余标签原样保留
func ReplaceStatusTag(tags []string, status BundleStatus) []string {
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		if _, ok := statusTags[t]; ok {
			continue
		}
		out = append(out, t)
	}
	return append(out, status.Tag())
}
