package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/stockwatch/internal/domain/audit"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

// runRepository 审计历史仓储实现(MySQL)
// 实现domain/audit/repository.go定义的RunRepository接口
type runRepository struct {
	db *gorm.DB
}

// NewRunRepository 创建审计历史仓储
func NewRunRepository(db *gorm.DB) audit.RunRepository {
	return &runRepository{db: db}
}

// Save 落一行审计历史
func (r *runRepository) Save(ctx context.Context, rep *audit.Report) error {
	model := &AuditRunModel{
		RunID:          rep.RunID,
		Processed:      rep.Processed,
		NotifiedEmails: rep.NotifiedEmails,
		NotifiedSMS:    rep.NotifiedSMS,
		NotifErrors:    rep.NotifErrors,
		ProductErrors:  rep.ProductErrors,
		Transitions:    rep.Transitions,
		Partial:        rep.Partial,
		NextSinceID:    rep.NextSinceID,
		StartedAt:      rep.StartedAt,
		DurationMs:     rep.Duration.Milliseconds(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入审计历史失败")
	}
	return nil
}

// List 分页查询审计历史(新→旧)
func (r *runRepository) List(ctx context.Context, page, pageSize int) ([]*audit.Report, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&AuditRunModel{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "统计审计历史失败")
	}

	var models []AuditRunModel
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询审计历史失败")
	}

	reports := make([]*audit.Report, 0, len(models))
	for i := range models {
		reports = append(reports, toReport(&models[i]))
	}
	return reports, total, nil
}

// toReport GORM模型 → 领域实体
func toReport(m *AuditRunModel) *audit.Report {
	return &audit.Report{
		RunID:          m.RunID,
		Processed:      m.Processed,
		NotifiedEmails: m.NotifiedEmails,
		NotifiedSMS:    m.NotifiedSMS,
		NotifErrors:    m.NotifErrors,
		ProductErrors:  m.ProductErrors,
		Transitions:    m.Transitions,
		Partial:        m.Partial,
		NextSinceID:    m.NextSinceID,
		StartedAt:      m.StartedAt,
		Duration:       time.Duration(m.DurationMs) * time.Millisecond,
		Timestamp:      m.StartedAt.Add(time.Duration(m.DurationMs) * time.Millisecond),
	}
}
