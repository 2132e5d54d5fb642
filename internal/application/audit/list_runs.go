package audit

import (
	"context"

	domainaudit "github.com/xiebiao/stockwatch/internal/domain/audit"
)

// ListRunsUseCase 审计历史查询用例
type ListRunsUseCase struct {
	runs domainaudit.RunRepository
}

// NewListRunsUseCase 创建查询用例
func NewListRunsUseCase(runs domainaudit.RunRepository) *ListRunsUseCase {
	return &ListRunsUseCase{runs: runs}
}

// Execute 按时间倒序分页查询审计历史
func (uc *ListRunsUseCase) Execute(ctx context.Context, page, pageSize int) ([]*domainaudit.Report, int64, error) {
	return uc.runs.List(ctx, page, pageSize)
}
