// Package repository 提供数据访问层
package repository

import "errors"

var (
	// ErrCouponExhausted 优惠券总量已用完或已停用
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	// ErrCouponUserLimit 用户使用次数已达上限
	ErrCouponUserLimit = errors.New("coupon per-user limit reached")
	// ErrCouponAlreadyRedeemed 该订单已核销过此券
	ErrCouponAlreadyRedeemed = errors.New("coupon already redeemed for order")
)
