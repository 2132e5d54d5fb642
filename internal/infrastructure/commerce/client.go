package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
	"github.com/xiebiao/stockwatch/pkg/metrics"
	"github.com/xiebiao/stockwatch/pkg/ratelimit"
)

// Client 商品平台API客户端(限流版)
// 设计说明:
// 1. 平台限流按账号计,所以Pacer在客户端实例级共享(进程内单实例,
//    由依赖注入保证),相邻调用保持最小间隔
// 2. 429:按退避器等待后重试,服务端给Retry-After时优先遵循;
//    网络错误同样重试;尝试次数有上限
// 3. 重试耗尽或其他非2xx → UpstreamAPIError(携带状态码和响应体)
//    网络层失败 → TransportError
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pacer      *ratelimit.Pacer
	backoff    *ratelimit.Backoff
}

// NewClient 创建客户端
func NewClient(cfg *config.Config) *Client {
	c := cfg.Commerce
	return &Client{
		baseURL:    c.BaseURL,
		token:      c.AccessToken,
		httpClient: &http.Client{Timeout: c.HTTPTimeout},
		pacer:      ratelimit.NewPacer(c.MinCallInterval),
		backoff: ratelimit.NewBackoff(ratelimit.BackoffConfig{
			Base:        c.BackoffBase,
			Max:         c.BackoffMax,
			Jitter:      c.BackoffJitter,
			MaxAttempts: c.RetryMax,
		}),
	}
}

// doJSON 执行一次API调用(含节流与重试),out非nil时解析响应体
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, "序列化请求体失败")
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.backoff.MaxAttempts(); attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return apperrors.NewTransportError(err)
		}

		// 最后一次尝试失败后直接返回,不再白等一个退避周期
		final := attempt == c.backoff.MaxAttempts()-1

		status, respBody, retryAfter, err := c.once(ctx, method, path, payload)
		if err != nil {
			// 网络层失败:退避后重试
			metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
				map[string]string{"api": "commerce", "result": "retry"})
			lastErr = apperrors.NewTransportError(err)
			if final {
				break
			}
			if serr := c.backoff.Sleep(ctx, attempt, 0); serr != nil {
				return lastErr
			}
			continue
		}

		if status == http.StatusTooManyRequests {
			metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
				map[string]string{"api": "commerce", "result": "retry"})
			lastErr = apperrors.NewUpstreamAPIError(status, truncate(respBody))
			if final {
				break
			}
			if serr := c.backoff.Sleep(ctx, attempt, retryAfter); serr != nil {
				return lastErr
			}
			continue
		}

		if status < 200 || status > 299 {
			// 非429的非2xx不重试:重试大概率同样失败,交给调用方分级处理
			metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
				map[string]string{"api": "commerce", "result": "failure"})
			return apperrors.NewUpstreamAPIError(status, truncate(respBody))
		}

		metrics.IncCounterVec(metrics.UpstreamRequestsTotal,
			map[string]string{"api": "commerce", "result": "success"})
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return apperrors.NewValidationError("解析上游响应失败: %v", err)
			}
		}
		return nil
	}

	return lastErr
}

// once 单次HTTP往返
func (c *Client) once(ctx context.Context, method, path string, payload []byte) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, 0, err
	}

	return resp.StatusCode, body, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// parseRetryAfter 解析Retry-After头(秒数,含小数)
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}

// truncate 响应体截断(错误信息里不携带完整响应)
func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// gid 平台GraphQL全局ID
func gid(kind string, id int64) string {
	return fmt.Sprintf("gid://commerce/%s/%d", kind, id)
}
