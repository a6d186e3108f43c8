package coupon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/store"
)

// redemption is a coupon usage together with its payment's status, so the
// fake can answer completed-only counts the way the SQL join does.
type redemption struct {
	couponID uuid.UUID
	userID   uuid.UUID
	status   string
	discount decimal.Decimal
}

type memStore struct {
	coupons     map[string]*store.Coupon
	courses     map[uuid.UUID]*store.Course
	redemptions []redemption
}

func newMemStore() *memStore {
	return &memStore{
		coupons: make(map[string]*store.Coupon),
		courses: make(map[uuid.UUID]*store.Course),
	}
}

func (m *memStore) GetCouponByCode(_ context.Context, code string) (*store.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) GetCourse(_ context.Context, courseID uuid.UUID) (*store.Course, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) CountCompletedRedemptions(_ context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error) {
	var n int64
	for _, r := range m.redemptions {
		if r.couponID != couponID || r.status != store.PaymentCompleted {
			continue
		}
		if userID != nil && r.userID != *userID {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memStore) CreateCoupon(_ context.Context, c *store.Coupon) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	m.coupons[c.Code] = c
	return nil
}

func (m *memStore) DeactivateCoupon(_ context.Context, couponID uuid.UUID) error {
	for _, c := range m.coupons {
		if c.ID == couponID {
			c.Active = false
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListTeacherCouponIDs(_ context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, c := range m.coupons {
		if c.CreatorType == store.CreatorTeacher && c.CreatedByID == teacherID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (m *memStore) AggregateCouponUsage(_ context.Context, couponIDs []uuid.UUID) (int64, decimal.Decimal, error) {
	var count int64
	total := decimal.Zero
	for _, r := range m.redemptions {
		for _, id := range couponIDs {
			if r.couponID == id {
				count++
				total = total.Add(r.discount)
			}
		}
	}
	return count, total, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

func percentCoupon(code string, value string) *store.Coupon {
	return &store.Coupon{
		Base:          store.Base{ID: uuid.New()},
		Code:          code,
		DiscountType:  store.DiscountPercentage,
		DiscountValue: decimal.RequireFromString(value),
		CreatorType:   store.CreatorPlatformAdmin,
		CreatedByID:   uuid.New(),
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidUntil:    time.Now().Add(time.Hour),
		Active:        true,
	}
}

func TestValidateCountsOnlyPaidRedemptions(t *testing.T) {
	userID := uuid.New()
	courseID := uuid.New()
	price := decimal.RequireFromString("1000.00")

	tests := []struct {
		name    string
		setup   func(c *store.Coupon, m *memStore)
		wantErr error
	}{
		{
			name: "failed payment does not consume per-user limit",
			setup: func(c *store.Coupon, m *memStore) {
				c.PerUserLimit = intPtr(1)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: userID, status: store.PaymentFailed})
			},
		},
		{
			name: "abandoned pending payment does not consume per-user limit",
			setup: func(c *store.Coupon, m *memStore) {
				c.PerUserLimit = intPtr(1)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: userID, status: store.PaymentPending})
			},
		},
		{
			name: "completed payment consumes per-user limit",
			setup: func(c *store.Coupon, m *memStore) {
				c.PerUserLimit = intPtr(1)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: userID, status: store.PaymentCompleted})
			},
			wantErr: ErrPerUserLimitReached,
		},
		{
			name: "another user's completed redemption leaves per-user limit free",
			setup: func(c *store.Coupon, m *memStore) {
				c.PerUserLimit = intPtr(1)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted})
			},
		},
		{
			name: "failed payments do not consume global usage limit",
			setup: func(c *store.Coupon, m *memStore) {
				c.UsageLimit = intPtr(2)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentFailed},
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentFailed},
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted},
				)
			},
		},
		{
			name: "completed payments exhaust global usage limit",
			setup: func(c *store.Coupon, m *memStore) {
				c.UsageLimit = intPtr(2)
				m.redemptions = append(m.redemptions,
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted},
					redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted},
				)
			},
			wantErr: ErrUsageLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			c := percentCoupon("SAVE10", "10")
			tt.setup(c, m)
			m.coupons[c.Code] = c

			svc := New(m, testLogger())
			quote, err := svc.Validate(context.Background(), "SAVE10", courseID, userID, price)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if !quote.DiscountAmount.Equal(decimal.RequireFromString("100.00")) {
				t.Errorf("DiscountAmount = %s, want 100.00", quote.DiscountAmount)
			}
			if !quote.FinalAmount.Equal(decimal.RequireFromString("900.00")) {
				t.Errorf("FinalAmount = %s, want 900.00", quote.FinalAmount)
			}
		})
	}
}

func TestValidateRejections(t *testing.T) {
	userID := uuid.New()
	courseID := uuid.New()
	price := decimal.RequireFromString("500.00")

	tests := []struct {
		name    string
		code    string
		setup   func(c *store.Coupon)
		wantErr error
	}{
		{
			name:    "unknown code",
			code:    "NOPE",
			setup:   func(c *store.Coupon) {},
			wantErr: ErrCouponNotFound,
		},
		{
			name:    "inactive coupon",
			code:    "SAVE10",
			setup:   func(c *store.Coupon) { c.Active = false },
			wantErr: ErrCouponInactive,
		},
		{
			name:    "not yet valid",
			code:    "SAVE10",
			setup:   func(c *store.Coupon) { c.ValidFrom = time.Now().Add(time.Hour) },
			wantErr: ErrCouponNotYetValid,
		},
		{
			name:    "expired",
			code:    "SAVE10",
			setup:   func(c *store.Coupon) { c.ValidUntil = time.Now().Add(-time.Minute) },
			wantErr: ErrCouponExpired,
		},
		{
			name: "scoped to another course",
			code: "SAVE10",
			setup: func(c *store.Coupon) {
				other := uuid.New()
				c.CourseID = &other
			},
			wantErr: ErrCouponNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemStore()
			c := percentCoupon("SAVE10", "10")
			tt.setup(c)
			m.coupons[c.Code] = c

			svc := New(m, testLogger())
			_, err := svc.Validate(context.Background(), tt.code, courseID, userID, price)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeactivateUnknownCoupon(t *testing.T) {
	svc := New(newMemStore(), testLogger())
	err := svc.Deactivate(context.Background(), uuid.New())
	if !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("Deactivate() error = %v, want ErrCouponNotFound", err)
	}
}

func TestTeacherStats(t *testing.T) {
	teacherID := uuid.New()
	m := newMemStore()

	c := percentCoupon("TEACH10", "10")
	c.CreatorType = store.CreatorTeacher
	c.CreatedByID = teacherID
	m.coupons[c.Code] = c
	m.redemptions = append(m.redemptions,
		redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted, discount: decimal.RequireFromString("50.00")},
		redemption{couponID: c.ID, userID: uuid.New(), status: store.PaymentCompleted, discount: decimal.RequireFromString("25.00")},
	)

	svc := New(m, testLogger())
	stats, err := svc.TeacherStats(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("TeacherStats() unexpected error: %v", err)
	}
	if stats.CouponCount != 1 {
		t.Errorf("CouponCount = %d, want 1", stats.CouponCount)
	}
	if stats.RedemptionCnt != 2 {
		t.Errorf("RedemptionCnt = %d, want 2", stats.RedemptionCnt)
	}
	if !stats.TotalDiscount.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("TotalDiscount = %s, want 75.00", stats.TotalDiscount)
	}
}
