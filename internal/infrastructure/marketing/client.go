package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/xiebiao/stockwatch/internal/domain/notify"
	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
	"github.com/xiebiao/stockwatch/pkg/metrics"
)

// Client 营销自动化API客户端
// 实现notify.Marketer:列表订阅、档案属性、事件提交
//
// 与commerce客户端的区别:这里不做进程级pacing和退避重试——
// 派发器按订阅者间歇暂停(见Dispatcher),且每个副作用失败被独立捕获,
// 重试留给下一轮审计(Notified标记保证不会每轮重发)
type Client struct {
	baseURL    string
	apiKey     string
	listID     string
	httpClient *http.Client
}

// NewClient 创建客户端
func NewClient(cfg *config.Config) *Client {
	m := cfg.Marketing
	return &Client{
		baseURL:    m.BaseURL,
		apiKey:     m.APIKey,
		listID:     m.ListID,
		httpClient: &http.Client{Timeout: m.HTTPTimeout},
	}
}

// Subscribe 把订阅者加入补货通知列表(提交订阅任务)
// 短信通道仅在smsOK时附带(同意标志+可规范化号码已由派发器把关)
func (c *Client) Subscribe(ctx context.Context, sub *waitlist.Subscriber, smsOK bool) error {
	profile := map[string]interface{}{
		"email": sub.Email,
	}
	channels := []string{"email"}
	if smsOK {
		phone, _ := waitlist.NormalizePhone(sub.Phone)
		profile["phone_number"] = phone
		channels = append(channels, "sms")
	}
	profile["channels"] = channels

	body := map[string]interface{}{
		"profiles": []interface{}{profile},
	}
	return c.doJSON(ctx, http.MethodPost, "/lists/"+c.listID+"/subscribe", body)
}

// StampProfile 把商品上下文冗余写到订阅者档案属性
// 下游邮件/短信模板直接引用这些属性,不再回查商品平台
func (c *Client) StampProfile(ctx context.Context, sub *waitlist.Subscriber, p notify.ProductContext) error {
	body := map[string]interface{}{
		"email": sub.Email,
		"properties": map[string]string{
			"restock_product_id":     strconv.FormatInt(p.ID, 10),
			"restock_product_handle": p.Handle,
			"restock_product_title":  p.Title,
			"restock_product_url":    p.URL,
			"restock_expected_date":  p.RestockDate,
		},
	}
	return c.doJSON(ctx, http.MethodPut, "/profiles", body)
}

// TrackEvent 提交补货事件(触发营销侧的flow)
func (c *Client) TrackEvent(ctx context.Context, sub *waitlist.Subscriber, p notify.ProductContext) error {
	body := map[string]interface{}{
		"event": "Back In Stock",
		"customer_properties": map[string]string{
			"email": sub.Email,
		},
		"properties": map[string]interface{}{
			"product_id":     p.ID,
			"product_handle": p.Handle,
			"product_title":  p.Title,
			"product_url":    p.URL,
		},
	}
	return c.doJSON(ctx, http.MethodPost, "/events", body)
}

// doJSON 执行一次API调用
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, "序列化请求体失败")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewTransportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
			map[string]string{"api": "marketing", "result": "failure"})
		return apperrors.NewTransportError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
			map[string]string{"api": "marketing", "result": "failure"})
		return apperrors.NewUpstreamAPIError(resp.StatusCode, string(respBody))
	}

	metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
		map[string]string{"api": "marketing", "result": "success"})
	return nil
}
