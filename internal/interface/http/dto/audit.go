package dto

import (
	"time"

	domainaudit "github.com/xiebiao/stockwatch/internal/domain/audit"
)

// AuditRunResponse 单轮审计结果响应
type AuditRunResponse struct {
	RunID          string    `json:"run_id"`
	Processed      int       `json:"processed"`       // 本轮审计的商品数
	NotifiedEmails int       `json:"notified_emails"` // 邮件通道成功登记数
	NotifiedSMS    int       `json:"notified_sms"`    // 短信通道成功登记数
	NotifErrors    int       `json:"notif_errors"`    // 通知副作用失败次数
	ProductErrors  int       `json:"product_errors"`  // 被隔离的单商品失败数
	Transitions    int       `json:"transitions"`     // 检测到的补货转变数
	Partial        bool      `json:"partial"`         // 是否预算截断(还有余量待续跑)
	NextSinceID    int64     `json:"next_since_id,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// FromReport 领域报告 → HTTP响应
func FromReport(r *domainaudit.Report) *AuditRunResponse {
	return &AuditRunResponse{
		RunID:          r.RunID,
		Processed:      r.Processed,
		NotifiedEmails: r.NotifiedEmails,
		NotifiedSMS:    r.NotifiedSMS,
		NotifErrors:    r.NotifErrors,
		ProductErrors:  r.ProductErrors,
		Transitions:    r.Transitions,
		Partial:        r.Partial,
		NextSinceID:    r.NextSinceID,
		DurationMs:     r.Duration.Milliseconds(),
		Timestamp:      r.Timestamp,
	}
}

// FromReports 批量转换(历史查询)
func FromReports(rs []*domainaudit.Report) []*AuditRunResponse {
	out := make([]*AuditRunResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, FromReport(r))
	}
	return out
}
