package catalog

import (
	"context"
)

// Evaluator 套装评估器
// 对每个套装商品:逐变体解析组件、计算可组装数量、汇总最坏状态
type Evaluator struct {
	reader   Reader
	resolver *Resolver
}

// NewEvaluator 创建评估器(与Resolver同轮共享缓存)
func NewEvaluator(reader Reader, resolver *Resolver) *Evaluator {
	return &Evaluator{reader: reader, resolver: resolver}
}

// ComponentHealth 单个组件的评估结果
type ComponentHealth struct {
	Component BundleComponent
	Resolved  bool // 是否成功解析到变体
	Have      int  // 可售数量(未解析时为0)
}

// VariantEval 套装单个变体的评估结果
type VariantEval struct {
	VariantID  int64
	Status     BundleStatus
	Buildable  int // 可组装数量 = min floor(have/need)
	Components []ComponentHealth
}

// BundleEval 套装商品的评估结果
// Buildable是各变体之和,仅用于上报展示,不参与状态判定
type BundleEval struct {
	Status    BundleStatus
	Buildable int
	Variants  []VariantEval
}

// Evaluate 评估套装商品
// 状态判定规则(每个变体):
// - 任一已解析组件可售数量为0 → out-of-stock
// - 否则任一组件数量低于需求(含未解析组件) → understocked
// - 否则 → ok
// 商品最终状态 = 各变体中最坏的(out-of-stock > understocked > ok)
func (e *Evaluator) Evaluate(ctx context.Context, p *Product, sets []ComponentSet) (*BundleEval, error) {
	eval := &BundleEval{Status: StatusOK}

	for _, set := range sets {
		ve := VariantEval{VariantID: set.VariantID, Status: StatusOK}
		buildable := -1 // -1表示尚未有组件参与计算

		for _, comp := range set.Components {
			health, err := e.componentHealth(ctx, comp)
			if err != nil {
				return nil, err
			}
			ve.Components = append(ve.Components, health)

			need := comp.Need()
			switch {
			case health.Resolved && health.Have <= 0:
				ve.Status = Worse(ve.Status, StatusOutOfStock)
			case health.Have < need:
				// 未解析组件Have=0但Resolved=false,落在这个分支:
				// 视为数量不足(约束套装),绝不静默当作健康
				ve.Status = Worse(ve.Status, StatusUnderstocked)
			}

			n := health.Have / need
			if n < 0 {
				n = 0
			}
			if buildable < 0 || n < buildable {
				buildable = n
			}
		}

		if buildable < 0 {
			buildable = 0
		}
		if len(set.Components) == 0 {
			// 空组件集无法验证,保守处理
			ve.Status = StatusUnderstocked
		}
		ve.Buildable = buildable

		eval.Status = Worse(eval.Status, ve.Status)
		eval.Buildable += ve.Buildable
		eval.Variants = append(eval.Variants, ve)
	}

	if len(sets) == 0 {
		// 套装商品但读不到任何组件声明:同样保守处理
		eval.Status = StatusUnderstocked
	}

	return eval, nil
}

// componentHealth 解析单个组件并取其可售数量
// 解析顺序(保守策略,勿随意放宽):
// 1. 显式变体引用:直接使用
// 2. 商品引用:仅当该商品恰好只有一个变体时可解析(多变体引用有歧义,不猜)
// 3. SKU:在本轮索引中查找(尽力而为,见SKUIndex说明)
// 解析失败不报错:返回Resolved=false,由状态判定当作数量不足
func (e *Evaluator) componentHealth(ctx context.Context, comp BundleComponent) (ComponentHealth, error) {
	health := ComponentHealth{Component: comp}

	v, ok, err := e.resolveVariant(ctx, comp)
	if err != nil {
		return health, err
	}
	if !ok {
		return health, nil
	}

	have, err := e.resolver.SellableQuantity(ctx, v)
	if err != nil {
		return health, err
	}

	health.Resolved = true
	health.Have = have
	return health, nil
}

// resolveVariant 组件引用 → 变体
func (e *Evaluator) resolveVariant(ctx context.Context, comp BundleComponent) (*Variant, bool, error) {
	if comp.VariantID != 0 {
		v, err := e.reader.GetVariant(ctx, comp.VariantID)
		if err != nil {
			// 变体不存在属于数据问题而非系统故障:当作未解析
			if err == ErrVariantNotFound {
				return nil, false, nil
			}
			return nil, false, err
		}
		return v, true, nil
	}

	if comp.ProductID != 0 {
		p, err := e.reader.GetProduct(ctx, comp.ProductID)
		if err != nil {
			if err == ErrProductNotFound {
				return nil, false, nil
			}
			return nil, false, err
		}
		if len(p.Variants) != 1 {
			// 多变体商品引用有歧义,保守地不解析
			return nil, false, nil
		}
		return &p.Variants[0], true, nil
	}

	if comp.SKU != "" {
		if v, ok := e.resolver.SKUIndex().Lookup(comp.SKU); ok {
			return v, true, nil
		}
	}

	return nil, false, nil
}
