package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
	"github.com/xiebiao/stockwatch/pkg/response"
)

// CronAuthMiddleware 触发密钥中间件
// 设计说明:
// 1. 审计触发端点面向外部调度器(cron服务),用共享密钥鉴权,
//    不引入完整的用户体系
// 2. 密钥比较用常量时间算法,避免时序侧信道
// 3. 密钥为空表示不鉴权(仅开发环境,release模式下配置校验会拒绝)
type CronAuthMiddleware struct {
	secret string
}

// NewCronAuthMiddleware 创建中间件
func NewCronAuthMiddleware(secret string) *CronAuthMiddleware {
	return &CronAuthMiddleware{secret: secret}
}

// Require 要求携带触发密钥
// 格式:Authorization: Bearer <secret>
func (m *CronAuthMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.secret)) != 1 {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Next()
	}
}
