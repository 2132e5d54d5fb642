package audit

import (
	"time"
)

// Report 一轮审计的结果报告
// 设计说明:
// 1. 返回给触发方(外部调度器)的JSON即来自该结构
// 2. 同时落一行到MySQL历史表,便于排障与对账
// 3. Partial=true表示时间预算内未扫完,调度器应携带游标继续触发
type Report struct {
	RunID          string        // 本轮唯一标识
	Processed      int           // 本轮处理的商品数
	NotifiedEmails int           // 邮件通道成功登记数
	NotifiedSMS    int           // 短信通道成功登记数
	NotifErrors    int           // 通知副作用失败次数
	ProductErrors  int           // 单商品审计失败数(被隔离,未中断本轮)
	Transitions    int           // 检测到的补货转变数
	Partial        bool          // 是否因预算截断
	NextSinceID    int64         // 续跑游标(Partial或还有更多页时非0)
	StartedAt      time.Time     // 开始时间
	Duration       time.Duration // 本轮耗时
	Timestamp      time.Time     // 结束时间
}
