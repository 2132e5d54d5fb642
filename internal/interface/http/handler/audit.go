package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appaudit "github.com/xiebiao/stockwatch/internal/application/audit"
	"github.com/xiebiao/stockwatch/internal/interface/http/dto"
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
	"github.com/xiebiao/stockwatch/pkg/response"
)

// AuditHandler 审计HTTP处理器
type AuditHandler struct {
	runUseCase  *appaudit.RunAuditUseCase
	listUseCase *appaudit.ListRunsUseCase
}

// NewAuditHandler 创建审计处理器
func NewAuditHandler(runUseCase *appaudit.RunAuditUseCase, listUseCase *appaudit.ListRunsUseCase) *AuditHandler {
	return &AuditHandler{
		runUseCase:  runUseCase,
		listUseCase: listUseCase,
	}
}

// Run 触发一轮审计(外部调度器调用,同步返回本轮报告)
// 查询参数:
//   - reset=1 忽略续跑游标,从目录头开始
//   - limit=N 覆盖分页大小(超上限截断)
//
// 状态码:200 正常(含partial) / 401 密钥不匹配 / 423 已有审计在运行 / 500 其余失败
func (h *AuditHandler) Run(c *gin.Context) {
	var req appaudit.Request

	if v := c.Query("reset"); v == "1" || v == "true" {
		req.Reset = true
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "limit参数无效: "+v)
			return
		}
		req.PageSize = limit
	}

	report, err := h.runUseCase.Execute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.FromReport(report))
}

// ListRuns 查询审计历史(分页,时间倒序)
func (h *AuditHandler) ListRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	reports, total, err := h.listUseCase.Execute(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPage(c, dto.FromReports(reports), total, page, pageSize)
}
