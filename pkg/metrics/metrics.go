// Package metrics 提供基于Prometheus的指标收集
//
// 指标命名规范：
// - Counter以`_total`结尾（audit_products_processed_total）
// - Histogram以单位结尾（audit_run_duration_seconds）
// - Gauge使用现在时态（audit_in_progress）
//
// 使用方式：
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	// 业务代码中
//	metrics.IncCounter(metrics.ProductsProcessedTotal)
//	metrics.ObserveHistogram(metrics.RunDuration, time.Since(start).Seconds())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// 审计轮次指标

	// RunsTotal 审计轮次总数（Counter）
	// 标签：result（completed/partial/failed/locked）
	RunsTotal *prometheus.CounterVec

	// RunDuration 单轮审计耗时（Histogram）
	RunDuration prometheus.Histogram

	// RunInProgress 是否有审计在进行（Gauge，0或1）
	RunInProgress prometheus.Gauge

	// 商品处理指标

	// ProductsProcessedTotal 已审计商品总数（Counter）
	ProductsProcessedTotal prometheus.Counter

	// ProductErrorsTotal 单商品审计失败总数（Counter）
	ProductErrorsTotal prometheus.Counter

	// RestockTransitionsTotal 检测到的补货转变总数（Counter）
	RestockTransitionsTotal prometheus.Counter

	// 通知指标

	// NotificationsTotal 通知发送总数（Counter）
	// 标签：channel（email/sms）
	NotificationsTotal *prometheus.CounterVec

	// NotificationErrorsTotal 通知发送失败总数（Counter）
	NotificationErrorsTotal prometheus.Counter

	// 上游API指标

	// UpstreamRequestsTotal 上游请求总数（Counter）
	// 标签：api（commerce/marketing）、result（success/retry/failure）
	UpstreamRequestsTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
// 必须在程序启动时调用一次,使用promauto自动注册到默认Registry
func InitMetrics() {
	if initialized {
		return
	}
	initialized = true

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_runs_total",
		Help: "审计轮次总数",
	}, []string{"result"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audit_run_duration_seconds",
		Help:    "单轮审计耗时",
		Buckets: []float64{1, 5, 10, 20, 30, 45, 60, 120},
	})

	RunInProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audit_in_progress",
		Help: "是否有审计在进行(0/1)",
	})

	ProductsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_products_processed_total",
		Help: "已审计商品总数",
	})

	ProductErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_product_errors_total",
		Help: "单商品审计失败总数",
	})

	RestockTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_restock_transitions_total",
		Help: "检测到的补货转变总数",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_notifications_total",
		Help: "通知发送总数",
	}, []string{"channel"})

	NotificationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_notification_errors_total",
		Help: "通知发送失败总数",
	})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "上游API请求总数",
	}, []string{"api", "result"})
}

// =========================================
// 辅助函数（空指针安全:未InitMetrics时静默跳过,方便单测）
// =========================================

// IncCounter 递增Counter
func IncCounter(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// AddCounter Counter增加指定值
func AddCounter(c prometheus.Counter, v float64) {
	if c != nil {
		c.Add(v)
	}
}

// IncCounterVec 递增带标签的Counter
func IncCounterVec(c *prometheus.CounterVec, labels map[string]string) {
	if c != nil {
		c.With(labels).Inc()
	}
}

// AddCounterVec 带标签的Counter增加指定值
func AddCounterVec(c *prometheus.CounterVec, labels map[string]string, v float64) {
	if c != nil {
		c.With(labels).Add(v)
	}
}

// SetGauge 设置Gauge值
func SetGauge(g prometheus.Gauge, v float64) {
	if g != nil {
		g.Set(v)
	}
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(h prometheus.Histogram, v float64) {
	if h != nil {
		h.Observe(v)
	}
}
