// Package coupon implements coupon creation and redemption rules. Discount
// amounts are computed here exactly once, against the pre-discount price,
// and frozen into the redemption row by the payment flow.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/util/codes"
)

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Validate checks every redemption rule and prices the discount
	// against the pre-discount amount. It does not persist anything.
	Validate(ctx context.Context, code string, courseID, userID uuid.UUID, amount decimal.Decimal) (*Quote, error)

	// QuoteForCourse validates a coupon against a course's listed price.
	QuoteForCourse(ctx context.Context, code string, courseID, userID uuid.UUID) (*Quote, error)

	// Create registers a new coupon. An empty code is generated.
	Create(ctx context.Context, in CreateInput) (*store.Coupon, error)

	// Deactivate turns a coupon off without deleting its usage history.
	Deactivate(ctx context.Context, couponID uuid.UUID) error

	// TeacherStats summarizes redemptions of a teacher's own coupons.
	TeacherStats(ctx context.Context, teacherID uuid.UUID) (*Stats, error)
}

// Quote is the result of a successful validation.
type Quote struct {
	Coupon         *store.Coupon   `json:"coupon"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

// CreateInput describes a new coupon.
type CreateInput struct {
	Code              string
	DiscountType      string
	DiscountValue     decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	CreatorType       string
	CreatedByID       uuid.UUID
	CourseID          *uuid.UUID
	AssignedTeacherID *uuid.UUID
	ValidFrom         time.Time
	ValidUntil        time.Time
	UsageLimit        *int
	PerUserLimit      *int
}

// Stats summarizes coupon performance for a teacher.
type Stats struct {
	CouponCount   int             `json:"coupon_count"`
	RedemptionCnt int             `json:"redemption_count"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type couponService struct {
	store  Store
	logger *slog.Logger
}

func New(st Store, logger *slog.Logger) Service {
	return &couponService{store: st, logger: logger}
}

// Validate enforces limits against completed payments only. A redemption
// row whose checkout failed or was abandoned must not lock the user (or
// the coupon) out of future redemptions.
func (s *couponService) Validate(ctx context.Context, code string, courseID, userID uuid.UUID, amount decimal.Decimal) (*Quote, error) {
	c, err := s.store.GetCouponByCode(ctx, codes.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("load coupon: %w", err)
	}

	if !c.Active {
		return nil, ErrCouponInactive
	}

	now := time.Now()
	if now.Before(c.ValidFrom) {
		return nil, ErrCouponNotYetValid
	}
	if now.After(c.ValidUntil) {
		return nil, ErrCouponExpired
	}

	if c.CourseID != nil && *c.CourseID != courseID {
		return nil, ErrCouponNotApplicable
	}

	if c.UsageLimit != nil {
		used, err := s.store.CountCompletedRedemptions(ctx, c.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("count redemptions: %w", err)
		}
		if used >= int64(*c.UsageLimit) {
			return nil, ErrUsageLimitReached
		}
	}

	if c.PerUserLimit != nil {
		used, err := s.store.CountCompletedRedemptions(ctx, c.ID, &userID)
		if err != nil {
			return nil, fmt.Errorf("count user redemptions: %w", err)
		}
		if used >= int64(*c.PerUserLimit) {
			return nil, ErrPerUserLimitReached
		}
	}

	discount := c.ComputeDiscount(amount)
	return &Quote{
		Coupon:         c,
		OriginalAmount: amount,
		DiscountAmount: discount,
		FinalAmount:    amount.Sub(discount),
	}, nil
}

func (s *couponService) QuoteForCourse(ctx context.Context, code string, courseID, userID uuid.UUID) (*Quote, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	return s.Validate(ctx, code, courseID, userID, course.Price)
}

func (s *couponService) Create(ctx context.Context, in CreateInput) (*store.Coupon, error) {
	switch in.DiscountType {
	case store.DiscountPercentage:
		if !in.DiscountValue.IsPositive() || in.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return nil, ErrInvalidDiscount
		}
	case store.DiscountFixed:
		if !in.DiscountValue.IsPositive() {
			return nil, ErrInvalidDiscount
		}
	default:
		return nil, ErrInvalidDiscount
	}

	if in.CreatorType != store.CreatorPlatformAdmin && in.CreatorType != store.CreatorTeacher {
		return nil, ErrInvalidDiscount
	}

	code := codes.NormalizeCode(in.Code)
	if code == "" {
		generated, err := codes.GenerateCouponCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		code = generated
	}

	validUntil := in.ValidUntil
	if validUntil.IsZero() {
		validUntil = time.Now().AddDate(1, 0, 0)
	}
	validFrom := in.ValidFrom
	if validFrom.IsZero() {
		validFrom = time.Now()
	}

	c := &store.Coupon{
		Code:              code,
		DiscountType:      in.DiscountType,
		DiscountValue:     in.DiscountValue,
		MaxDiscountAmount: in.MaxDiscountAmount,
		CreatorType:       in.CreatorType,
		CreatedByID:       in.CreatedByID,
		CourseID:          in.CourseID,
		AssignedTeacherID: in.AssignedTeacherID,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil,
		UsageLimit:        in.UsageLimit,
		PerUserLimit:      in.PerUserLimit,
		Active:            true,
	}

	if err := s.store.CreateCoupon(ctx, c); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", c.ID.String()),
		slog.String("code", c.Code),
		slog.String("creator_type", c.CreatorType),
	)
	return c, nil
}

func (s *couponService) Deactivate(ctx context.Context, couponID uuid.UUID) error {
	if err := s.store.DeactivateCoupon(ctx, couponID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCouponNotFound
		}
		return err
	}
	return nil
}

func (s *couponService) TeacherStats(ctx context.Context, teacherID uuid.UUID) (*Stats, error) {
	couponIDs, err := s.store.ListTeacherCouponIDs(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list teacher coupons: %w", err)
	}

	stats := &Stats{CouponCount: len(couponIDs), TotalDiscount: decimal.Zero}
	if len(couponIDs) == 0 {
		return stats, nil
	}

	count, total, err := s.store.AggregateCouponUsage(ctx, couponIDs)
	if err != nil {
		return nil, fmt.Errorf("aggregate redemptions: %w", err)
	}

	stats.RedemptionCnt = int(count)
	stats.TotalDiscount = total
	return stats, nil
}
