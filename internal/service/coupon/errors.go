package coupon

import "errors"

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponNotYetValid   = errors.New("coupon is not valid yet")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponNotApplicable = errors.New("coupon does not apply to this course")
	ErrUsageLimitReached   = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached = errors.New("coupon already used the maximum number of times by this user")
	ErrInvalidDiscount     = errors.New("invalid discount configuration")
	ErrCourseNotFound      = errors.New("course not found")
)
