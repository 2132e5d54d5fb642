package commerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/stockwatch/internal/domain/catalog"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

func testClient(baseURL string) *Client {
	return NewClient(&config.Config{
		Commerce: config.CommerceConfig{
			BaseURL:     baseURL,
			AccessToken: "test-token",
			RetryMax:    3,
			BackoffBase: time.Millisecond,
			BackoffMax:  5 * time.Millisecond,
			HTTPTimeout: 5 * time.Second,
		},
	})
}

func TestListProducts_ParsesWireFormat(t *testing.T) {
	var gotPath, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotToken = r.Header.Get("X-Access-Token")
		w.Write([]byte(`{"products":[{
			"id": 7, "handle": "tea-sampler", "title": "Tea Sampler",
			"tags": "featured, bundle, bundle-ok",
			"variants": [{"id": 70, "product_id": 7, "sku": "TEA-1",
				"inventory_management": "tracked", "inventory_item_id": 700, "inventory_quantity": 3}]
		}]}`))
	}))
	defer srv.Close()

	products, err := testClient(srv.URL).ListProducts(context.Background(), 5, 50)

	require.NoError(t, err)
	assert.Equal(t, "/products.json?since_id=5&limit=50&fields="+productListFields, gotPath)
	assert.Equal(t, "test-token", gotToken)

	require.Len(t, products, 1)
	p := products[0]
	assert.Equal(t, int64(7), p.ID)
	// 逗号分隔标签 → 切片
	assert.Equal(t, []string{"featured", "bundle", "bundle-ok"}, p.Tags)
	assert.True(t, p.IsBundle())
	require.Len(t, p.Variants, 1)
	assert.True(t, p.Variants[0].Tracked())
}

func TestDoJSON_RetriesOn429HonoringRetryAfter(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0.01")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"products":[]}`))
	}))
	defer srv.Close()

	start := time.Now()
	_, err := testClient(srv.URL).ListProducts(context.Background(), 0, 50)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// Retry-After生效:至少等了服务端要求的10ms
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestDoJSON_RetriesExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListProducts(context.Background(), 0, 50)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.IsUpstreamStatus(err, http.StatusTooManyRequests))
}

func TestDoJSON_NoBackoffAfterFinalAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0.2")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(&config.Config{
		Commerce: config.CommerceConfig{
			BaseURL:     srv.URL,
			AccessToken: "test-token",
			RetryMax:    2,
			BackoffBase: time.Millisecond,
			BackoffMax:  5 * time.Millisecond,
			HTTPTimeout: 5 * time.Second,
		},
	})

	start := time.Now()
	_, err := client.ListProducts(context.Background(), 0, 50)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	// 两次尝试之间等一个Retry-After(超过Max也原样遵循),
	// 最后一次失败后立即返回,不再白等第二个周期
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 380*time.Millisecond)
}

func TestDoJSON_NonRetryableStatusFailsFast(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ListProducts(context.Background(), 0, 50)

	require.Error(t, err)
	// 非429的非2xx不重试
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.IsUpstreamStatus(err, http.StatusBadGateway))
}

func TestGetProduct_NotFoundMapsToDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetProduct(context.Background(), 404)

	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestReplaceTags_JoinsWithComma(t *testing.T) {
	var gotBody map[string]map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := testClient(srv.URL).ReplaceTags(context.Background(), 7, []string{"featured", "bundle", "bundle-ok"})

	require.NoError(t, err)
	assert.Equal(t, "featured, bundle, bundle-ok", gotBody["product"]["tags"])
}

func TestParseComponents_Formats(t *testing.T) {
	t.Run("顶层数组视为单个组件集", func(t *testing.T) {
		sets, err := parseComponents(`[{"variant_id": 1, "quantity": 2}, {"sku": "TEA-1"}]`)
		require.NoError(t, err)
		require.Len(t, sets, 1)
		assert.Len(t, sets[0].Components, 2)
	})

	t.Run("变体级sets形态", func(t *testing.T) {
		sets, err := parseComponents(`{"sets":[{"variant_id": 10, "components":[{"variant_id": 1}]}]}`)
		require.NoError(t, err)
		require.Len(t, sets, 1)
		assert.Equal(t, int64(10), sets[0].VariantID)
	})

	t.Run("非法JSON", func(t *testing.T) {
		_, err := parseComponents(`{broken`)
		assert.ErrorIs(t, err, catalog.ErrMalformedComponents)
	})

	t.Run("空声明", func(t *testing.T) {
		_, err := parseComponents("")
		assert.ErrorIs(t, err, catalog.ErrMalformedComponents)
	})
}
