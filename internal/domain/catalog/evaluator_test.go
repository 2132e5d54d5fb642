package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// setLevel 设置库存项可售数量(单位置)
func (f *fakeReader) setLevel(itemID int64, available int) {
	f.levels[itemID] = []InventoryLevel{{InventoryItemID: itemID, LocationID: 1, Available: available}}
}

// componentFixture 构造N个显式变体组件,qty[i]为库存,need[i]为需求
func componentFixture(f *fakeReader, needs []int, haves []int) []BundleComponent {
	comps := make([]BundleComponent, len(needs))
	for i := range needs {
		id := int64(1000 + i)
		item := int64(2000 + i)
		v := tracked(id, item, "")
		f.variants[id] = &v
		f.setLevel(item, haves[i])
		comps[i] = BundleComponent{VariantID: id, Quantity: needs[i]}
	}
	return comps
}

func evalOne(t *testing.T, f *fakeReader, sets []ComponentSet) *BundleEval {
	t.Helper()
	r := NewResolver(f)
	e := NewEvaluator(f, r)
	eval, err := e.Evaluate(context.Background(), &Product{ID: 1, Tags: []string{"bundle"}}, sets)
	require.NoError(t, err)
	return eval
}

// TestEvaluate_AllOK 组件全部充足 → ok
func TestEvaluate_AllOK(t *testing.T) {
	f := newFakeReader()
	comps := componentFixture(f, []int{2, 1}, []int{10, 5})

	eval := evalOne(t, f, []ComponentSet{{VariantID: 1, Components: comps}})
	require.Equal(t, StatusOK, eval.Status)
	require.Equal(t, 5, eval.Buildable) // min(10/2, 5/1) = 5
}

// TestEvaluate_SpecExample 规格书示例:需求{4,4,4,2,2,2,4,4,4,2}
// 任一已解析组件数量为0 → out-of-stock
func TestEvaluate_SpecExample(t *testing.T) {
	needs := []int{4, 4, 4, 2, 2, 2, 4, 4, 4, 2}

	// 全部充足
	f := newFakeReader()
	haves := []int{8, 8, 8, 4, 4, 4, 8, 8, 8, 4}
	comps := componentFixture(f, needs, haves)
	eval := evalOne(t, f, []ComponentSet{{VariantID: 1, Components: comps}})
	require.Equal(t, StatusOK, eval.Status)
	require.Equal(t, 2, eval.Buildable)

	// 任一组件为0 → out-of-stock
	f = newFakeReader()
	haves = []int{8, 8, 8, 4, 0, 4, 8, 8, 8, 4}
	comps = componentFixture(f, needs, haves)
	eval = evalOne(t, f, []ComponentSet{{VariantID: 1, Components: comps}})
	require.Equal(t, StatusOutOfStock, eval.Status)
	require.Equal(t, 0, eval.Buildable)

	// 有组件低于需求但都>0 → understocked
	f = newFakeReader()
	haves = []int{8, 8, 3, 4, 4, 4, 8, 8, 8, 4}
	comps = componentFixture(f, needs, haves)
	eval = evalOne(t, f, []ComponentSet{{VariantID: 1, Components: comps}})
	require.Equal(t, StatusUnderstocked, eval.Status)
}

// TestEvaluate_UnresolvedConstrains 未解析组件视为数量不足,绝不静默忽略
func TestEvaluate_UnresolvedConstrains(t *testing.T) {
	f := newFakeReader()
	comps := componentFixture(f, []int{1}, []int{10})
	// 追加一个解析不到的组件(SKU不在本轮索引)
	comps = append(comps, BundleComponent{SKU: "GHOST-SKU", Quantity: 1})

	eval := evalOne(t, f, []ComponentSet{{VariantID: 1, Components: comps}})
	require.Equal(t, StatusUnderstocked, eval.Status, "未解析组件应使套装降级,而不是out-of-stock或ok")
	require.Equal(t, 0, eval.Buildable)
}

// TestEvaluate_ProductRefSingleVariant 商品引用仅在单变体时解析
func TestEvaluate_ProductRefSingleVariant(t *testing.T) {
	f := newFakeReader()

	// 单变体商品:可解析
	single := &Product{ID: 50, Variants: []Variant{tracked(51, 500, "")}}
	f.addProduct(single)
	f.setLevel(500, 6)

	// 多变体商品:有歧义,不解析
	multi := &Product{ID: 60, Variants: []Variant{tracked(61, 600, ""), tracked(62, 601, "")}}
	f.addProduct(multi)
	f.setLevel(600, 9)
	f.setLevel(601, 9)

	eval := evalOne(t, f, []ComponentSet{{VariantID: 1, Components: []BundleComponent{
		{ProductID: 50, Quantity: 2},
	}}})
	require.Equal(t, StatusOK, eval.Status)
	require.Equal(t, 3, eval.Buildable)

	eval = evalOne(t, f, []ComponentSet{{VariantID: 1, Components: []BundleComponent{
		{ProductID: 60, Quantity: 1},
	}}})
	require.Equal(t, StatusUnderstocked, eval.Status, "多变体商品引用应视为未解析")
}

// TestEvaluate_SKULookup SKU在本轮索引中解析
func TestEvaluate_SKULookup(t *testing.T) {
	f := newFakeReader()
	seen := &Product{ID: 70, Variants: []Variant{tracked(71, 700, "ABC-1")}}
	f.addProduct(seen)
	f.setLevel(700, 4)

	r := NewResolver(f)
	e := NewEvaluator(f, r)

	// 先"见到"该商品(模拟分页遍历),索引才有内容
	r.Observe(seen)

	eval, err := e.Evaluate(context.Background(), &Product{ID: 1}, []ComponentSet{
		{VariantID: 1, Components: []BundleComponent{{SKU: "abc-1", Quantity: 2}}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusOK, eval.Status)
	require.Equal(t, 2, eval.Buildable)
}

// TestEvaluate_WorstAcrossVariants 商品状态=各变体最坏
func TestEvaluate_WorstAcrossVariants(t *testing.T) {
	f := newFakeReader()
	okComps := componentFixture(f, []int{1}, []int{5})

	oos := tracked(3000, 3100, "")
	f.variants[3000] = &oos
	f.setLevel(3100, 0)

	eval := evalOne(t, f, []ComponentSet{
		{VariantID: 1, Components: okComps},
		{VariantID: 2, Components: []BundleComponent{{VariantID: 3000, Quantity: 1}}},
	})
	require.Equal(t, StatusOutOfStock, eval.Status)
	require.Equal(t, 5, eval.Buildable, "可组装总量是各变体之和,仅用于上报")
}

// TestEvaluate_NoComponents 套装但无组件声明 → 保守understocked
func TestEvaluate_NoComponents(t *testing.T) {
	f := newFakeReader()
	eval := evalOne(t, f, nil)
	require.Equal(t, StatusUnderstocked, eval.Status)
}

// TestStatusHelpers 状态标签的读写
func TestStatusHelpers(t *testing.T) {
	require.Equal(t, StatusOutOfStock, Worse(StatusUnderstocked, StatusOutOfStock))
	require.Equal(t, StatusUnderstocked, Worse(StatusUnderstocked, StatusOK))

	p := &Product{Tags: []string{"summer", "bundle-understocked"}}
	s, ok := StatusFromTags(p)
	require.True(t, ok)
	require.Equal(t, StatusUnderstocked, s)
	require.True(t, p.IsBundle(), "状态标签本身应保持套装身份")

	tags := ReplaceStatusTag(p.Tags, StatusOK)
	require.Equal(t, []string{"summer", "bundle-ok"}, tags)
}
