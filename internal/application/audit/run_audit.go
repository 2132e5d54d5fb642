package audit

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	domainaudit "github.com/xiebiao/stockwatch/internal/domain/audit"
	"github.com/xiebiao/stockwatch/internal/domain/catalog"
	"github.com/xiebiao/stockwatch/internal/domain/notify"
	"github.com/xiebiao/stockwatch/internal/domain/waitlist"
	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
	"github.com/xiebiao/stockwatch/pkg/metrics"
)

// Platform 商品平台完整接口(读+写)
type Platform interface {
	catalog.Reader
	catalog.Writer
}

// RunAuditUseCase 审计用例:整个对账引擎的编排入口
//
// 单轮状态机:Locked → Paging → (PerProduct)* → Persisted → Unlocked
//
// 设计说明:
// 1. 锁門禁:抢不到运行锁直接返回ErrAuditRunning(423),零商品处理
// 2. 分页:since_id游标升序,整个目录在N次续跑中被完整且不重叠地扫完
// 3. 时间预算:在商品之间检查(不打断单个商品),超了标记partial
// 4. 单商品失败被隔离:记日志、计数、继续;套装商品失败时保守回写
//    understocked(宁可提醒补货员也不谎报健康)
// 5. 每轮新建Resolver:记忆化与SKU索引都是轮级作用域
type RunAuditUseCase struct {
	cfg         *config.Config
	platform    Platform
	locker      domainaudit.Locker
	cursor      domainaudit.CursorStore
	snapshots   domainaudit.SnapshotStore
	subscribers waitlist.Store
	dispatcher  *notify.Dispatcher
	runs        domainaudit.RunRepository

	now func() time.Time // 可注入,测试控制时钟
}

// NewRunAuditUseCase 创建审计用例
func NewRunAuditUseCase(
	cfg *config.Config,
	platform Platform,
	locker domainaudit.Locker,
	cursor domainaudit.CursorStore,
	snapshots domainaudit.SnapshotStore,
	subscribers waitlist.Store,
	dispatcher *notify.Dispatcher,
	runs domainaudit.RunRepository,
) *RunAuditUseCase {
	return &RunAuditUseCase{
		cfg:         cfg,
		platform:    platform,
		locker:      locker,
		cursor:      cursor,
		snapshots:   snapshots,
		subscribers: subscribers,
		dispatcher:  dispatcher,
		runs:        runs,
		now:         time.Now,
	}
}

// Request 触发参数
type Request struct {
	Reset    bool // 强制游标归零,从头开始
	PageSize int  // 分页大小覆盖(0用配置默认,超上限截断)
}

// Execute 执行一轮审计
func (uc *RunAuditUseCase) Execute(ctx context.Context, req Request) (*domainaudit.Report, error) {
	// 凭据缺失时整轮直接失败,部分进度没有意义
	if err := uc.cfg.RequireUpstream(); err != nil {
		return nil, apperrors.ErrNotConfigured
	}

	// 锁門禁:同一时刻至多一轮
	acquired, err := uc.locker.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		metrics.IncCounterVec(metrics.RunsTotal, map[string]string{"result": "locked"})
		return nil, apperrors.ErrAuditRunning
	}
	// 成功失败都要释放
	defer func() {
		if err := uc.locker.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[audit] 释放运行锁失败: %v", err)
		}
	}()

	metrics.SetGauge(metrics.RunInProgress, 1)
	defer metrics.SetGauge(metrics.RunInProgress, 0)

	report, err := uc.sweep(ctx, req)
	if err != nil {
		metrics.IncCounterVec(metrics.RunsTotal, map[string]string{"result": "failed"})
		return nil, err
	}

	result := "completed"
	if report.Partial {
		result = "partial"
	}
	metrics.IncCounterVec(metrics.RunsTotal, map[string]string{"result": result})
	metrics.ObserveHistogram(metrics.RunDuration, report.Duration.Seconds())

	// 历史落库尽力而为:MySQL故障不应使一轮成功的审计报失败
	if err := uc.runs.Save(ctx, report); err != nil {
		log.Printf("[audit] 写入审计历史失败 run=%s: %v", report.RunID, err)
	}

	return report, nil
}

// sweep 锁内的分页扫描
func (uc *RunAuditUseCase) sweep(ctx context.Context, req Request) (*domainaudit.Report, error) {
	start := uc.now()
	report := &domainaudit.Report{
		RunID:     uuid.NewString(),
		StartedAt: start,
	}

	pageSize := uc.cfg.Audit.PageSize
	if req.PageSize > 0 {
		pageSize = req.PageSize
		if pageSize > uc.cfg.Audit.MaxPageSize {
			pageSize = uc.cfg.Audit.MaxPageSize
		}
	}

	var sinceID int64
	if req.Reset {
		if err := uc.cursor.Clear(ctx); err != nil {
			return nil, err
		}
	} else {
		var err error
		sinceID, err = uc.cursor.Get(ctx)
		if err != nil {
			return nil, err
		}
	}

	resolver := catalog.NewResolver(uc.platform)
	evaluator := catalog.NewEvaluator(uc.platform, resolver)

	morePages := true
	for morePages && !report.Partial {
		products, err := uc.platform.ListProducts(ctx, sinceID, pageSize)
		if err != nil {
			return nil, err
		}
		// 返回数量小于limit表示没有更多商品
		morePages = len(products) == pageSize

		for _, p := range products {
			// 预算检查在商品之间:不打断单个商品的处理
			if uc.now().Sub(start) > uc.cfg.Audit.TimeBudget {
				report.Partial = true
				break
			}

			if err := uc.auditProduct(ctx, p, resolver, evaluator, report); err != nil {
				report.ProductErrors++
				metrics.IncCounter(metrics.ProductErrorsTotal)
				log.Printf("[audit] 商品审计失败 product=%d: %v", p.ID, err)
			}

			report.Processed++
			metrics.IncCounter(metrics.ProductsProcessedTotal)
			sinceID = p.ID
		}
	}

	// 还有工作(预算截断或还有更多页)→ 持久化游标供下次续跑
	// 否则清除游标,下次从头开始
	if report.Partial || morePages {
		report.Partial = true
		report.NextSinceID = sinceID
		if err := uc.cursor.Set(ctx, sinceID); err != nil {
			return nil, err
		}
	} else {
		if err := uc.cursor.Clear(ctx); err != nil {
			return nil, err
		}
	}

	end := uc.now()
	report.Duration = end.Sub(start)
	report.Timestamp = end
	return report, nil
}

// auditProduct 单商品管线(失败隔离单元)
// 套装商品在任何失败路径上都保守回写understocked:
// 宁可让补货员收到"库存不足"的误报,也不让过期的健康标签留在平台上
func (uc *RunAuditUseCase) auditProduct(
	ctx context.Context,
	p *catalog.Product,
	resolver *catalog.Resolver,
	evaluator *catalog.Evaluator,
	report *domainaudit.Report,
) error {
	if err := uc.auditOne(ctx, p, resolver, evaluator, report); err != nil {
		if p.IsBundle() {
			uc.retagConservative(ctx, p)
		}
		return err
	}
	return nil
}

// auditOne 单商品审计步骤
// 可售总量 → 快照比对 → (套装:评估+状态回写) → 触发判定 → 派发 → 写快照
func (uc *RunAuditUseCase) auditOne(
	ctx context.Context,
	p *catalog.Product,
	resolver *catalog.Resolver,
	evaluator *catalog.Evaluator,
	report *domainaudit.Report,
) error {
	total, err := resolver.ProductSellableTotal(ctx, p)
	if err != nil {
		return err
	}

	prev, hadSnapshot, err := uc.snapshots.Get(ctx, p.ID)
	if err != nil {
		return err
	}

	fired := false
	if p.IsBundle() {
		fired, err = uc.auditBundle(ctx, p, evaluator)
		if err != nil {
			return err
		}
	} else {
		// 普通商品:快照数值转变策略
		fired = hadSnapshot && notify.SnapshotTransition(prev, total)
	}

	if fired {
		report.Transitions++
		metrics.IncCounter(metrics.RestockTransitionsTotal)
		if err := uc.notifySubscribers(ctx, p, report); err != nil {
			// 通知失败不影响快照写入:下一轮靠Notified标记续发
			report.NotifErrors++
			log.Printf("[audit] 订阅者通知失败 product=%d: %v", p.ID, err)
		}
	}

	return uc.snapshots.Set(ctx, p.ID, total)
}

// auditBundle 套装商品:评估组件、状态回写、状态转变判定
// 失败时只上抛错误,保守回写由auditProduct统一兜底
func (uc *RunAuditUseCase) auditBundle(ctx context.Context, p *catalog.Product, evaluator *catalog.Evaluator) (bool, error) {
	// 上一轮状态从商品现有标签读出,每轮只读一次
	prevStatus, prevKnown := catalog.StatusFromTags(p)

	sets, err := uc.platform.BundleComponents(ctx, p)
	if err != nil {
		return false, err
	}

	eval, err := evaluator.Evaluate(ctx, p, sets)
	if err != nil {
		return false, err
	}

	if err := uc.writeStatus(ctx, p, eval.Status, eval.Buildable); err != nil {
		return false, err
	}

	if prevKnown && prevStatus != eval.Status {
		log.Printf("[audit] 套装状态变化 product=%d %s → %s (可组装%d)",
			p.ID, prevStatus, eval.Status, eval.Buildable)
	}

	// 套装路径:状态转变策略(与普通商品的快照策略刻意分开)
	return notify.StatusTransition(prevStatus, prevKnown, eval.Status), nil
}

// writeStatus 状态回写:标签+metafield,每轮覆盖
func (uc *RunAuditUseCase) writeStatus(ctx context.Context, p *catalog.Product, status catalog.BundleStatus, buildable int) error {
	tags := catalog.ReplaceStatusTag(p.Tags, status)
	if err := uc.platform.ReplaceTags(ctx, p.ID, tags); err != nil {
		return err
	}
	p.Tags = tags

	if err := uc.platform.UpsertMetafield(ctx, p.ID, catalog.MetafieldNamespace, catalog.MetafieldStatus, status.String()); err != nil {
		return err
	}
	return uc.platform.UpsertMetafield(ctx, p.ID, catalog.MetafieldNamespace, catalog.MetafieldBuildable, strconv.Itoa(buildable))
}

// retagConservative 套装审计失败时的保守回写(尽力而为,失败只记日志)
func (uc *RunAuditUseCase) retagConservative(ctx context.Context, p *catalog.Product) {
	if err := uc.writeStatus(ctx, p, catalog.StatusUnderstocked, 0); err != nil {
		log.Printf("[audit] 保守回写失败 product=%d: %v", p.ID, err)
	}
}

// notifySubscribers 加载、派发、落盘
func (uc *RunAuditUseCase) notifySubscribers(ctx context.Context, p *catalog.Product, report *domainaudit.Report) error {
	subs, err := uc.subscribers.Load(ctx, p.ID, p.Handle)
	if err != nil {
		return err
	}

	pending := waitlist.Pending(subs)
	if len(pending) == 0 {
		return nil
	}

	res := uc.dispatcher.Dispatch(ctx, notify.ProductContext{
		ID:          p.ID,
		Handle:      p.Handle,
		Title:       p.Title,
		URL:         p.URL(),
		RestockDate: p.RestockDate,
	}, pending)

	report.NotifiedEmails += res.Emails
	report.NotifiedSMS += res.SMS
	report.NotifErrors += res.Errors
	metrics.AddCounter(metrics.NotificationErrorsTotal, float64(res.Errors))
	metrics.AddCounterVec(metrics.NotificationsTotal, map[string]string{"channel": "email"}, float64(res.Emails))
	metrics.AddCounterVec(metrics.NotificationsTotal, map[string]string{"channel": "sms"}, float64(res.SMS))

	// Notified标记已在派发中置位,整表写回两个键
	return uc.subscribers.Save(ctx, p.ID, p.Handle, subs)
}
