package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaudit "github.com/xiebiao/stockwatch/internal/application/audit"
	domainaudit "github.com/xiebiao/stockwatch/internal/domain/audit"
	"github.com/xiebiao/stockwatch/internal/domain/catalog"
	"github.com/xiebiao/stockwatch/internal/domain/notify"
	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	"github.com/xiebiao/stockwatch/internal/interface/http/middleware"
	"github.com/xiebiao/stockwatch/pkg/response"
)

// =========================================
// 最小测试替身(空目录,只验证HTTP语义)
// =========================================

type stubPlatform struct{}

func (stubPlatform) ListProducts(context.Context, int64, int) ([]*catalog.Product, error) {
	return nil, nil
}
func (stubPlatform) GetProduct(context.Context, int64) (*catalog.Product, error) {
	return nil, catalog.ErrProductNotFound
}
func (stubPlatform) GetVariant(context.Context, int64) (*catalog.Variant, error) {
	return nil, catalog.ErrVariantNotFound
}
func (stubPlatform) InventoryLevels(context.Context, []int64) ([]catalog.InventoryLevel, error) {
	return nil, nil
}
func (stubPlatform) BundleComponents(context.Context, *catalog.Product) ([]catalog.ComponentSet, error) {
	return nil, nil
}
func (stubPlatform) ReplaceTags(context.Context, int64, []string) error { return nil }
func (stubPlatform) UpsertMetafield(context.Context, int64, string, string, string) error {
	return nil
}

type stubLocker struct{ available bool }

func (s *stubLocker) Acquire(context.Context) (bool, error) { return s.available, nil }
func (s *stubLocker) Release(context.Context) error         { return nil }

type stubCursor struct{}

func (stubCursor) Get(context.Context) (int64, error) { return 0, nil }
func (stubCursor) Set(context.Context, int64) error { return nil }
func (stubCursor) Clear(context.Context) error { return nil }

type stubSnapshots struct{}

func (stubSnapshots) Get(context.Context, int64) (int, bool, error) { return 0, false, nil }
func (stubSnapshots) Set(context.Context, int64, int) error         { return nil }

type stubWaitlist struct{}

func (stubWaitlist) Load(context.Context, int64, string) ([]*waitlist.Subscriber, error) {
	return nil, nil
}
func (stubWaitlist) Save(context.Context, int64, string, []*waitlist.Subscriber) error { return nil }

type stubMarketer struct{}

func (stubMarketer) Subscribe(context.Context, *waitlist.Subscriber, bool) error { return nil }
func (stubMarketer) StampProfile(context.Context, *waitlist.Subscriber, notify.ProductContext) error {
	return nil
}
func (stubMarketer) TrackEvent(context.Context, *waitlist.Subscriber, notify.ProductContext) error {
	return nil
}

type stubRuns struct{ reports []*domainaudit.Report }

func (s *stubRuns) Save(_ context.Context, r *domainaudit.Report) error {
	s.reports = append(s.reports, r)
	return nil
}

func (s *stubRuns) List(context.Context, int, int) ([]*domainaudit.Report, int64, error) {
	return s.reports, int64(len(s.reports)), nil
}

// =========================================
// 组装
// =========================================

func testRouter(t *testing.T, secret string, locker *stubLocker, runs *stubRuns) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Commerce:  config.CommerceConfig{BaseURL: "https://shop.test", AccessToken: "token"},
		Marketing: config.MarketingConfig{BaseURL: "https://mkt.test", APIKey: "key", ListID: "L1"},
		Audit: config.AuditConfig{
			PageSize:    50,
			MaxPageSize: 250,
			TimeBudget:  time.Hour,
			CronSecret:  secret,
		},
	}

	dispatcher := notify.NewDispatcher(stubMarketer{}, 5, 0)
	runUC := appaudit.NewRunAuditUseCase(cfg, stubPlatform{}, locker, stubCursor{}, stubSnapshots{}, stubWaitlist{}, dispatcher, runs)
	listUC := appaudit.NewListRunsUseCase(runs)

	h := NewAuditHandler(runUC, listUC)
	cronAuth := middleware.NewCronAuthMiddleware(cfg.Audit.CronSecret)

	r := gin.New()
	audit := r.Group("/api/v1/audit", cronAuth.Require())
	{
		audit.GET("/run", h.Run)
		audit.GET("/runs", h.ListRuns)
	}
	return r
}

func doGet(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// =========================================
// 测试
// =========================================

func TestRun_Success(t *testing.T) {
	runs := &stubRuns{}
	r := testRouter(t, "s3cret", &stubLocker{available: true}, runs)

	w := doGet(r, "/api/v1/audit/run", "s3cret")

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["run_id"])
	assert.Equal(t, false, data["partial"])
	// 空目录:零商品处理,历史照常落库
	assert.Equal(t, float64(0), data["processed"])
	assert.Len(t, runs.reports, 1)
}

func TestRun_WrongSecret(t *testing.T) {
	r := testRouter(t, "s3cret", &stubLocker{available: true}, &stubRuns{})

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/api/v1/audit/run", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/api/v1/audit/run", "").Code)
}

func TestRun_EmptySecretDisablesGate(t *testing.T) {
	r := testRouter(t, "", &stubLocker{available: true}, &stubRuns{})

	assert.Equal(t, http.StatusOK, doGet(r, "/api/v1/audit/run", "").Code)
}

func TestRun_LockedReturns423(t *testing.T) {
	r := testRouter(t, "s3cret", &stubLocker{available: false}, &stubRuns{})

	w := doGet(r, "/api/v1/audit/run", "s3cret")

	assert.Equal(t, http.StatusLocked, w.Code)
}

func TestRun_InvalidLimit(t *testing.T) {
	r := testRouter(t, "s3cret", &stubLocker{available: true}, &stubRuns{})

	assert.Equal(t, http.StatusBadRequest, doGet(r, "/api/v1/audit/run?limit=abc", "s3cret").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(r, "/api/v1/audit/run?limit=-5", "s3cret").Code)
}

func TestListRuns(t *testing.T) {
	runs := &stubRuns{reports: []*domainaudit.Report{
		{RunID: "r1", Processed: 3},
		{RunID: "r2", Processed: 5, Partial: true},
	}}
	r := testRouter(t, "s3cret", &stubLocker{available: true}, runs)

	w := doGet(r, "/api/v1/audit/runs?page=1&page_size=10", "s3cret")

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["list"], 2)
}
