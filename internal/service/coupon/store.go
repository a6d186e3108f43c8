package coupon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/store"
)

// Store is the persistence surface the coupon service needs. The gorm data
// layer satisfies it directly; tests use an in-memory fake.
type Store interface {
	GetCouponByCode(ctx context.Context, code string) (*store.Coupon, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*store.Course, error)

	// CountCompletedRedemptions counts redemptions backed by a completed
	// payment, optionally scoped to one user. Usage limits are enforced
	// against this count so abandoned or failed checkouts never consume
	// a redemption.
	CountCompletedRedemptions(ctx context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error)

	CreateCoupon(ctx context.Context, c *store.Coupon) error
	DeactivateCoupon(ctx context.Context, couponID uuid.UUID) error
	ListTeacherCouponIDs(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error)
	AggregateCouponUsage(ctx context.Context, couponIDs []uuid.UUID) (int64, decimal.Decimal, error)
}
