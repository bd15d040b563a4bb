// Package pricing 定价引擎：加价区间、汇率换算、折扣叠加与最终售价合成
//
// 包内只做纯计算，所需的加价配置、汇率、优惠券与促销均由调用方预先加载后传入。
package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrCurrencyMismatch 不同币种的金额不能直接运算
	ErrCurrencyMismatch = errors.New("pricing: currency mismatch")
	// ErrInvalidRange 加价区间金额为负或 min > max
	ErrInvalidRange = errors.New("pricing: invalid markup range")
	// ErrOverlappingRanges 同一加价表内区间重叠
	ErrOverlappingRanges = errors.New("pricing: overlapping markup ranges")
	// ErrInvalidRate 汇率必须为正，加价百分比不能为负
	ErrInvalidRate = errors.New("pricing: invalid exchange rate")
	// ErrInvalidScope 适用范围类型与ID组合无效
	ErrInvalidScope = errors.New("pricing: invalid scope")
	// ErrDiscountCurrencyRequired 固定金额、最低消费或封顶金额必须声明币种
	ErrDiscountCurrencyRequired = errors.New("pricing: discount with monetary amounts requires a currency")
	// ErrBreakdownNotSerializable 价格明细仅供内部核算，禁止序列化
	ErrBreakdownNotSerializable = errors.New("pricing: breakdown is internal and cannot be serialized")
)

// RateNotFoundError 缺少所需方向的汇率
type RateNotFoundError struct {
	From string
	To   string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("pricing: no exchange rate from %s to %s", e.From, e.To)
}

// IsRateNotFound 判断错误链中是否包含缺失汇率错误
func IsRateNotFound(err error) bool {
	var target *RateNotFoundError
	return errors.As(err, &target)
}
