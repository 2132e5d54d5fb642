package audit

import (
	"context"
)

// SnapshotStore 库存快照存储(商品ID → 上次可售总量)
// 不变量:任一时刻每个商品至多一条快照;每轮审计覆盖写;带TTL
// 用途仅限转变检测(上次<=0且本次>0 ⇒ 补货)
type SnapshotStore interface {
	// Get 读取快照,found=false表示无快照(首次见到该商品)
	Get(ctx context.Context, productID int64) (qty int, found bool, err error)

	// Set 覆盖写快照(带TTL)
	Set(ctx context.Context, productID int64, qty int) error
}

// CursorStore 续跑游标存储(单键+TTL)
// 不变量:缺失或0表示从头开始
type CursorStore interface {
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, sinceID int64) error
	Clear(ctx context.Context) error
}

// Locker 运行锁(单键,not-exists语义+TTL)
// 不变量:持有期间其他审计不得进入;任何退出路径都要释放
// TTL大于最坏单轮耗时,持有者崩溃后锁自然过期(崩溃恢复)
type Locker interface {
	// Acquire 尝试获取锁,false表示已被占用(调用方快速失败,不排队)
	Acquire(ctx context.Context) (bool, error)

	// Release 释放锁
	Release(ctx context.Context) error
}

// RunRepository 审计历史仓储(MySQL)
// 每轮落一行,历史查询供排障与对账
type RunRepository interface {
	Save(ctx context.Context, r *Report) error
	List(ctx context.Context, page, pageSize int) ([]*Report, int64, error)
}
