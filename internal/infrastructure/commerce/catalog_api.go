package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xiebiao/stockwatch/internal/domain/catalog"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

// 本文件实现catalog.Reader和catalog.Writer
// metafield命名空间与键的约定见catalog包常量

const productListFields = "id,handle,title,tags,variants"

// =========================================
// 线格式
// =========================================

type productPayload struct {
	ID       int64            `json:"id"`
	Handle   string           `json:"handle"`
	Title    string           `json:"title"`
	Tags     string           `json:"tags"` // 平台用逗号分隔字符串
	Variants []variantPayload `json:"variants"`
}

type variantPayload struct {
	ID                  int64  `json:"id"`
	ProductID           int64  `json:"product_id"`
	SKU                 string `json:"sku"`
	Title               string `json:"title"`
	InventoryManagement string `json:"inventory_management"`
	InventoryItemID     int64  `json:"inventory_item_id"`
	InventoryQuantity   int    `json:"inventory_quantity"`
}

type metafieldPayload struct {
	ID        int64  `json:"id"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

func toProduct(p *productPayload) *catalog.Product {
	out := &catalog.Product{
		ID:     p.ID,
		Handle: p.Handle,
		Title:  p.Title,
		Tags:   splitTags(p.Tags),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, catalog.Variant{
			ID:                  v.ID,
			ProductID:           v.ProductID,
			SKU:                 v.SKU,
			Title:               v.Title,
			InventoryManagement: v.InventoryManagement,
			InventoryItemID:     v.InventoryItemID,
			InventoryQuantity:   v.InventoryQuantity,
		})
	}
	return out
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// =========================================
// catalog.Reader
// =========================================

// ListProducts 按since_id游标分页拉取商品(字段投影)
func (c *Client) ListProducts(ctx context.Context, sinceID int64, limit int) ([]*catalog.Product, error) {
	var resp struct {
		Products []productPayload `json:"products"`
	}
	path := fmt.Sprintf("/products.json?since_id=%d&limit=%d&fields=%s", sinceID, limit, productListFields)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*catalog.Product, 0, len(resp.Products))
	for i := range resp.Products {
		out = append(out, toProduct(&resp.Products[i]))
	}
	return out, nil
}

// GetProduct 按ID拉取单个商品
func (c *Client) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var resp struct {
		Product *productPayload `json:"product"`
	}
	path := fmt.Sprintf("/products/%d.json", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if apperrors.IsUpstreamStatus(err, http.StatusNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	if resp.Product == nil {
		return nil, catalog.ErrProductNotFound
	}
	return toProduct(resp.Product), nil
}

// GetVariant 按ID拉取单个变体
func (c *Client) GetVariant(ctx context.Context, id int64) (*catalog.Variant, error) {
	var resp struct {
		Variant *variantPayload `json:"variant"`
	}
	path := fmt.Sprintf("/variants/%d.json", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		if apperrors.IsUpstreamStatus(err, http.StatusNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	if resp.Variant == nil {
		return nil, catalog.ErrVariantNotFound
	}
	v := resp.Variant
	return &catalog.Variant{
		ID:                  v.ID,
		ProductID:           v.ProductID,
		SKU:                 v.SKU,
		Title:               v.Title,
		InventoryManagement: v.InventoryManagement,
		InventoryItemID:     v.InventoryItemID,
		InventoryQuantity:   v.InventoryQuantity,
	}, nil
}

// InventoryLevels 查询一组库存项在所有位置的可售数量
func (c *Client) InventoryLevels(ctx context.Context, itemIDs []int64) ([]catalog.InventoryLevel, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	var resp struct {
		InventoryLevels []struct {
			InventoryItemID int64 `json:"inventory_item_id"`
			LocationID      int64 `json:"location_id"`
			Available       int   `json:"available"`
		} `json:"inventory_levels"`
	}
	path := "/inventory_levels.json?inventory_item_ids=" + strings.Join(ids, ",")
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]catalog.InventoryLevel, 0, len(resp.InventoryLevels))
	for _, l := range resp.InventoryLevels {
		out = append(out, catalog.InventoryLevel{
			InventoryItemID: l.InventoryItemID,
			LocationID:      l.LocationID,
			Available:       l.Available,
		})
	}
	return out, nil
}

// BundleComponents 读取套装组件声明
// 优先级:结构化metafield声明 → 平台原生组合商品(GraphQL)
func (c *Client) BundleComponents(ctx context.Context, p *catalog.Product) ([]catalog.ComponentSet, error) {
	sets, found, err := c.componentsFromMetafield(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if found {
		return sets, nil
	}
	return c.componentsFromGraphQL(ctx, p)
}

// componentsFromMetafield 从metafield读组件声明
// 支持两种JSON形态:
// - 顶层数组:商品级声明,视为单个组件集
// - {"sets":[{"variant_id":...,"components":[...]}]}:变体级声明
func (c *Client) componentsFromMetafield(ctx context.Context, productID int64) ([]catalog.ComponentSet, bool, error) {
	var resp struct {
		Metafields []metafieldPayload `json:"metafields"`
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, false, err
	}

	for _, m := range resp.Metafields {
		if m.Namespace != catalog.MetafieldNamespace || m.Key != catalog.MetafieldComponents {
			continue
		}
		sets, err := parseComponents(m.Value)
		if err != nil {
			return nil, false, err
		}
		return sets, true, nil
	}
	return nil, false, nil
}

// parseComponents 解析组件声明JSON
// 格式非法 → ValidationError(跳过该商品,不中断整轮)
func parseComponents(raw string) ([]catalog.ComponentSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, catalog.ErrMalformedComponents
	}

	if strings.HasPrefix(raw, "[") {
		var comps []catalog.BundleComponent
		if err := json.Unmarshal([]byte(raw), &comps); err != nil {
			return nil, catalog.ErrMalformedComponents
		}
		return []catalog.ComponentSet{{Components: comps}}, nil
	}

	var wrapper struct {
		Sets []struct {
			VariantID  int64                     `json:"variant_id"`
			Components []catalog.BundleComponent `json:"components"`
		} `json:"sets"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err != nil || len(wrapper.Sets) == 0 {
		return nil, catalog.ErrMalformedComponents
	}

	sets := make([]catalog.ComponentSet, 0, len(wrapper.Sets))
	for _, s := range wrapper.Sets {
		sets = append(sets, catalog.ComponentSet{VariantID: s.VariantID, Components: s.Components})
	}
	return sets, nil
}

// componentsFromGraphQL 平台原生组合商品结构(GraphQL)
// 每个变体携带组件列表(组件变体、数量);顺带取预计到货日自定义字段
const bundleComponentsQuery = `
query bundleComponents($id: ID!) {
  product(id: $id) {
    restockDate: metafield(namespace: "stockwatch", key: "restock_date") { value }
    variants(first: 50) {
      nodes {
        legacyResourceId
        bundleComponents(first: 50) {
          nodes {
            quantity
            componentVariant { legacyResourceId sku }
          }
        }
      }
    }
  }
}`

func (c *Client) componentsFromGraphQL(ctx context.Context, p *catalog.Product) ([]catalog.ComponentSet, error) {
	body := map[string]interface{}{
		"query": bundleComponentsQuery,
		"variables": map[string]string{
			"id": gid("Product", p.ID),
		},
	}

	var resp struct {
		Data struct {
			Product struct {
				RestockDate *struct {
					Value string `json:"value"`
				} `json:"restockDate"`
				Variants struct {
					Nodes []struct {
						LegacyResourceID string `json:"legacyResourceId"`
						BundleComponents struct {
							Nodes []struct {
								Quantity         int `json:"quantity"`
								ComponentVariant *struct {
									LegacyResourceID string `json:"legacyResourceId"`
									SKU              string `json:"sku"`
								} `json:"componentVariant"`
							} `json:"nodes"`
						} `json:"bundleComponents"`
					} `json:"nodes"`
				} `json:"variants"`
			} `json:"product"`
		} `json:"data"`
	}

	if err := c.doJSON(ctx, http.MethodPost, "/graphql.json", body, &resp); err != nil {
		return nil, err
	}

	if resp.Data.Product.RestockDate != nil {
		p.RestockDate = resp.Data.Product.RestockDate.Value
	}

	var sets []catalog.ComponentSet
	for _, vn := range resp.Data.Product.Variants.Nodes {
		variantID, _ := strconv.ParseInt(vn.LegacyResourceID, 10, 64)
		set := catalog.ComponentSet{VariantID: variantID}
		for _, cn := range vn.BundleComponents.Nodes {
			comp := catalog.BundleComponent{Quantity: cn.Quantity}
			if cn.ComponentVariant != nil {
				comp.VariantID, _ = strconv.ParseInt(cn.ComponentVariant.LegacyResourceID, 10, 64)
				comp.SKU = cn.ComponentVariant.SKU
			}
			set.Components = append(set.Components, comp)
		}
		if len(set.Components) > 0 {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// =========================================
// catalog.Writer
// =========================================

// ReplaceTags 覆盖商品标签集
func (c *Client) ReplaceTags(ctx context.Context, productID int64, tags []string) error {
	body := map[string]interface{}{
		"product": map[string]interface{}{
			"id":   productID,
			"tags": strings.Join(tags, ", "),
		},
	}
	path := fmt.Sprintf("/products/%d.json", productID)
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

// UpsertMetafield 写入/更新商品metafield
// 平台的metafield upsert语义:同namespace+key存在则覆盖
func (c *Client) UpsertMetafield(ctx context.Context, productID int64, namespace, key, value string) error {
	body := map[string]interface{}{
		"metafield": map[string]interface{}{
			"namespace": namespace,
			"key":       key,
			"type":      "single_line_text_field",
			"value":     value,
		},
	}
	path := fmt.Sprintf("/products/%d/metafields.json", productID)
	return c.doJSON(ctx, http.MethodPost, path, body, nil)
}
