package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明:
// 1. Code用于调用方判断错误类型(不要直接暴露HTTP状态码)
// 2. Message是对运维/调度方友好的提示信息
// 3. Err是内部错误,仅记录到日志,不返回给调用方(防止泄露上游响应细节)
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 错误提示
	Err     error  `json:"-"`       // 内部错误(不序列化)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误(如Redis错误、网络错误)
// 用途:将底层错误转换为业务错误,隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 调用方错误（参数错误、鉴权失败、锁竞争）
// - 5xxxx: 服务端/上游错误（存储异常、上游API调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 上游调用错误（50200-50299）
	ErrCodeTransport     = 50200 // 网络传输失败(重试耗尽)
	ErrCodeUpstreamAPI   = 50201 // 上游API返回非2xx
	ErrCodeNotConfigured = 50202 // 缺少必要的外部凭据配置

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 触发密钥不匹配

	// 业务规则错误（40000-40099）
	ErrCodeValidation   = 40001 // 上游数据格式非法(跳过该商品)
	ErrCodeAuditRunning = 40002 // 审计任务已在运行(锁竞争)

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")

	// 配置错误:凭据缺失时整轮直接失败,部分进度没有意义
	ErrNotConfigured = New(ErrCodeNotConfigured, "缺少外部API凭据配置")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "触发密钥不匹配")

	// 锁竞争:进程内不重试,由外部调度器稍后重试
	ErrAuditRunning = New(ErrCodeAuditRunning, "审计任务已在运行中")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
)

// =========================================
// 上游错误类型
// =========================================

// UpstreamAPIError 上游API在重试耗尽后仍返回非2xx
// 携带状态码和响应体:整轮失败时透传给调用方,单商品失败时记日志后跳过
type UpstreamAPIError struct {
	Status int    // HTTP状态码
	Body   string // 响应体(截断)
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("上游API错误: status=%d body=%s", e.Status, e.Body)
}

// NewUpstreamAPIError 创建上游API错误
func NewUpstreamAPIError(status int, body string) *AppError {
	return &AppError{
		Code:    ErrCodeUpstreamAPI,
		Message: fmt.Sprintf("上游API返回%d", status),
		Err:     &UpstreamAPIError{Status: status, Body: body},
	}
}

// NewTransportError 网络层失败(固定次数重试后仍失败)
func NewTransportError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: "网络传输失败",
		Err:     err,
	}
}

// NewValidationError 上游数据格式非法(如组件metafield无法解析)
// 处理策略:跳过该商品,不中断整轮审计
func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError,非AppError统一归为内部错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "系统内部错误",
		Err:     err,
	}
}

// IsUpstreamStatus 判断错误是否为指定HTTP状态码的上游错误
func IsUpstreamStatus(err error, status int) bool {
	var ue *UpstreamAPIError
	if errors.As(err, &ue) {
		return ue.Status == status
	}
	return false
}
