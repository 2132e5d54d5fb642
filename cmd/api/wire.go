//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 工作流程：
// Step 1: 编写wire.go(本文件),定义Providers和Injector
// Step 2: 运行 `wire gen ./cmd/api`
// Step 3: Wire生成wire_gen.go,包含完整的依赖创建代码
// Step 4: main.go调用wire_gen.go中的InitializeApp()

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	appaudit "github.com/xiebiao/stockwatch/internal/application/audit"
	domainaudit "github.com/xiebiao/stockwatch/internal/domain/audit"
	"github.com/xiebiao/stockwatch/internal/domain/notify"
	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
	"github.com/xiebiao/stockwatch/internal/infrastructure/commerce"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	"github.com/xiebiao/stockwatch/internal/infrastructure/marketing"
	"github.com/xiebiao/stockwatch/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/stockwatch/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/stockwatch/internal/interface/http/handler"
	"github.com/xiebiao/stockwatch/internal/interface/http/middleware"
	"github.com/xiebiao/stockwatch/pkg/response"
)

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	config.Load,     // 加载配置文件
	mysql.NewDB,     // 创建MySQL连接
	redis.NewClient, // 创建Redis连接
)

// storeSet 存储层依赖
// Store构造函数需要从Config提取TTL参数,所以用自定义Provider
var storeSet = wire.NewSet(
	mysql.NewRunRepository,
	provideSnapshotStore,
	provideSubscriberStore,
	provideCursorStore,
	provideRunLock,
)

// upstreamSet 上游API客户端依赖
var upstreamSet = wire.NewSet(
	providePlatform,
	provideDispatcher,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	appaudit.NewRunAuditUseCase,
	appaudit.NewListRunsUseCase,
)

// interfaceSet 接口层依赖
var interfaceSet = wire.NewSet(
	handler.NewAuditHandler,
	provideCronAuth,
)

// ========================================
// Custom Providers
// ========================================

func provideSnapshotStore(client *goredis.Client, cfg *config.Config) domainaudit.SnapshotStore {
	return redis.NewSnapshotStore(client, cfg.Audit.SnapshotTTL)
}

func provideSubscriberStore(client *goredis.Client, cfg *config.Config) waitlist.Store {
	return redis.NewSubscriberStore(client, cfg.Audit.SubscriberTTL)
}

func provideCursorStore(client *goredis.Client, cfg *config.Config) domainaudit.CursorStore {
	return redis.NewCursorStore(client, cfg.Audit.CursorTTL)
}

func provideRunLock(client *goredis.Client, cfg *config.Config) domainaudit.Locker {
	return redis.NewRunLock(client, cfg.Audit.LockTTL)
}

// providePlatform 商品平台客户端(catalog.Reader+Writer)
func providePlatform(cfg *config.Config) appaudit.Platform {
	return commerce.NewClient(cfg)
}

// provideDispatcher 通知派发器(营销客户端+pacing参数)
func provideDispatcher(cfg *config.Config) *notify.Dispatcher {
	return notify.NewDispatcher(marketing.NewClient(cfg), cfg.Marketing.PauseEvery, cfg.Marketing.PauseFor)
}

func provideCronAuth(cfg *config.Config) *middleware.CronAuthMiddleware {
	return middleware.NewCronAuthMiddleware(cfg.Audit.CronSecret)
}

// provideGinEngine 创建并配置Gin引擎
func provideGinEngine(
	cfg *config.Config,
	auditHandler *handler.AuditHandler,
	cronAuth *middleware.CronAuthMiddleware,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		audit := v1.Group("/audit")
		audit.Use(cronAuth.Require())
		{
			audit.GET("/run", auditHandler.Run)
			audit.GET("/runs", auditHandler.ListRuns)
		}
	}

	return r
}

// ========================================
// Wire Injector
// ========================================

// InitializeApp 初始化整个应用
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		infrastructureSet,
		storeSet,
		upstreamSet,
		applicationSet,
		interfaceSet,
		provideGinEngine,
	)
	return nil, nil
}
