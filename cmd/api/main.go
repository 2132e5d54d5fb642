package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appaudit "github.com/xiebiao/stockwatch/internal/application/audit"
	"github.com/xiebiao/stockwatch/internal/domain/notify"
	"github.com/xiebiao/stockwatch/internal/infrastructure/commerce"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	"github.com/xiebiao/stockwatch/internal/infrastructure/marketing"
	"github.com/xiebiao/stockwatch/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockwatch/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockwatch/internal/interface/http/handler"
	"github.com/xiebiao/stockwatch/internal/interface/http/middleware"
	"github.com/xiebiao/stockwatch/pkg/metrics"
	"github.com/xiebiao/stockwatch/pkg/response"
)

// main 主程序入口
// 说明：手动依赖注入(wire.go提供等价的Wire版本)
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())
	fmt.Printf("  - 商品平台: %s\n", cfg.Commerce.BaseURL)

	// 2. 初始化指标
	metrics.InitMetrics()

	// 3. 初始化数据库连接(审计历史)
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 4. 初始化Redis连接(快照/订阅者/游标/运行锁)
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 5. 依赖注入(手动组装)
	// Store/Client ← UseCase ← Handler

	// 基础设施层
	runRepo := mysql.NewRunRepository(db)
	snapshotStore := redis.NewSnapshotStore(redisClient, cfg.Audit.SnapshotTTL)
	subscriberStore := redis.NewSubscriberStore(redisClient, cfg.Audit.SubscriberTTL)
	cursorStore := redis.NewCursorStore(redisClient, cfg.Audit.CursorTTL)
	runLock := redis.NewRunLock(redisClient, cfg.Audit.LockTTL)
	commerceClient := commerce.NewClient(cfg)
	marketingClient := marketing.NewClient(cfg)

	// 领域层
	dispatcher := notify.NewDispatcher(marketingClient, cfg.Marketing.PauseEvery, cfg.Marketing.PauseFor)

	// 应用层
	runUseCase := appaudit.NewRunAuditUseCase(
		cfg, commerceClient, runLock, cursorStore, snapshotStore, subscriberStore, dispatcher, runRepo,
	)
	listUseCase := appaudit.NewListRunsUseCase(runRepo)

	// 接口层
	auditHandler := handler.NewAuditHandler(runUseCase, listUseCase)
	cronAuth := middleware.NewCronAuthMiddleware(cfg.Audit.CronSecret)

	// 6. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 7. 注册路由
	registerRoutes(r, auditHandler, cronAuth)

	// 8. 启动服务
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	fmt.Printf("\n🚀 服务启动成功！\n")
	fmt.Printf("   访问地址: http://localhost%s\n", addr)
	fmt.Printf("   健康检查: http://localhost%s/ping\n", addr)
	fmt.Printf("   触发审计: GET http://localhost%s/api/v1/audit/run (需要触发密钥)\n", addr)
	fmt.Printf("   审计历史: GET http://localhost%s/api/v1/audit/runs\n", addr)
	fmt.Printf("   指标采集: http://localhost%s/metrics\n", addr)
	fmt.Printf("\n按Ctrl+C停止服务\n\n")

	if err := r.Run(addr); err != nil {
		log.Fatalf("启动服务失败: %v", err)
	}
}

// registerRoutes 注册路由
func registerRoutes(r *gin.Engine, auditHandler *handler.AuditHandler, cronAuth *middleware.CronAuthMiddleware) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组
	v1 := r.Group("/api/v1")
	{
		// 审计模块(外部调度器调用,共享密钥鉴权)
		audit := v1.Group("/audit")
		audit.Use(cronAuth.Require())
		{
			audit.GET("/run", auditHandler.Run)       // 触发一轮审计
			audit.GET("/runs", auditHandler.ListRuns) // 审计历史
		}
	}
}
