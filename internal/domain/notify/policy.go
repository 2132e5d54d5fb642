package notify

import (
	"github.com/xiebiao/stockwatch/internal/domain/catalog"
)

// 两条独立的补货触发策略
// 普通商品和套装商品的触发条件刻意不统一(各自单独测试):
// - 普通商品看库存快照的数值转变
// - 套装商品看上一轮写入的状态标签的转变
// 不要投机地合并这两条策略

// SnapshotTransition 快照转变策略(普通商品)
// 仅当 上一轮<=0 且 本轮>0 时触发,单纯的数量增加不触发
// 负数快照按0处理(floor)
func SnapshotTransition(prev, cur int) bool {
	if prev < 0 {
		prev = 0
	}
	return prev <= 0 && cur > 0
}

// StatusTransition 状态转变策略(套装商品)
// 仅当上一轮状态为out-of-stock、本轮可售(ok或understocked)时触发
// prevKnown=false表示商品还没有状态标签(首轮):不触发,先建立基线
func StatusTransition(prev catalog.BundleStatus, prevKnown bool, next catalog.BundleStatus) bool {
	if !prevKnown {
		return false
	}
	return prev == catalog.StatusOutOfStock && next != catalog.StatusOutOfStock
}
