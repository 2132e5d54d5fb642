package catalog

import (
	apperrors "github.com/xiebiao/stockwatch/pkg/errors"
)

var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = apperrors.NewValidationError("商品不存在")

	// ErrVariantNotFound 变体不存在
	ErrVariantNotFound = apperrors.NewValidationError("变体不存在")

	// ErrMalformedComponents 组件声明无法解析(metafield格式非法)
	// 处理策略:跳过该商品,不中断整轮审计
	ErrMalformedComponents = apperrors.NewValidationError("套装组件声明格式非法")
)
