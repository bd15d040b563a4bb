// Package errors 定义业务错误码和错误处理
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, ErrXxx)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown       = New(1000, "未知错误")
	ErrInvalidParams = New(1001, "参数错误")
	ErrDatabaseError = New(1004, "数据库错误")
	ErrInternalError = New(1006, "内部错误")
)

// 定价错误码 (4000-4999)
// ErrPricingUnavailable 是唯一面向顾客的定价错误，消息中不得包含加价或成本信息
var (
	ErrPricingUnavailable  = New(4000, "pricing temporarily unavailable")
	ErrSellerNotFound      = New(4001, "卖家不存在")
	ErrCurrencyNotFound    = New(4002, "币种不存在")
	ErrCurrencyMismatch    = New(4003, "币种不一致")
	ErrInvalidMarkupRange  = New(4004, "加价区间无效")
	ErrOverlappingRanges   = New(4005, "加价区间重叠")
	ErrTemplateNotFound    = New(4006, "加价模板不存在")
	ErrTemplateInactive    = New(4007, "加价模板未启用")
	ErrInvalidExchangeRate = New(4008, "汇率无效")
)

// 营销错误码 (9000-9999)
var (
	ErrCouponNotFound      = New(9000, "优惠券不存在")
	ErrCouponExpired       = New(9001, "优惠券已过期")
	ErrCouponUsed          = New(9002, "该订单已使用优惠券")
	ErrCouponLimitExceed   = New(9004, "优惠券使用次数已达个人上限")
	ErrCouponNotEnough     = New(9005, "优惠券已领完")
	ErrCouponLoginRequired = New(9006, "优惠券需要登录后使用")
	ErrRedemptionInFlight  = New(9007, "优惠券正在核销中")
)

// HTTPStatus 业务错误以 200 返回；定价不可用返回 503，客户端可按暂时性故障重试
func (e *AppError) HTTPStatus() int {
	if e.Code == ErrPricingUnavailable.Code {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError 获取应用错误，非应用错误统一包装为未知错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
