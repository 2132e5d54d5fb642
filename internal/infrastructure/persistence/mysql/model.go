package mysql

import (
	"time"
)

// AuditRunModel 审计历史表(GORM模型)
// 每轮审计落一行,供排障与对账;与domain实体的转换在run_repo.go
type AuditRunModel struct {
	ID             uint      `gorm:"primaryKey"`
	RunID          string    `gorm:"type:varchar(36);uniqueIndex;not null"` // UUID
	Processed      int       `gorm:"not null"`
	NotifiedEmails int       `gorm:"not null"`
	NotifiedSMS    int       `gorm:"column:notified_sms;not null"`
	NotifErrors    int       `gorm:"not null"`
	ProductErrors  int       `gorm:"not null"`
	Transitions    int       `gorm:"not null"`
	Partial        bool      `gorm:"not null"`
	NextSinceID    int64     `gorm:"not null"`
	StartedAt      time.Time `gorm:"not null;index"`
	DurationMs     int64     `gorm:"not null"` // 耗时(毫秒)
	CreatedAt      time.Time
}

// TableName 指定表名
func (AuditRunModel) TableName() string {
	return "audit_runs"
}
