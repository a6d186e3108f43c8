// Package store defines the persistence model and the gorm-backed data
// access layer for the payments and commission domain.
package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Coupon discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Coupon creator types.
const (
	CreatorPlatformAdmin = "platform_admin"
	CreatorTeacher       = "teacher"
)

// Course assignment statuses.
const (
	AssignmentAssigned = "assigned"
	AssignmentAccepted = "accepted"
	AssignmentRejected = "rejected"
	AssignmentRevoked  = "revoked"
)

// Commission scenarios.
const (
	ScenarioNormal         = "normal"
	ScenarioPlatformCoupon = "platform_coupon"
	ScenarioTeacherCoupon  = "teacher_coupon"
)

// Payout statuses.
const (
	PayoutPending   = "pending"
	PayoutCompleted = "completed"
	PayoutFailed    = "failed"
	PayoutCancelled = "cancelled"
)

// Base carries the shared id and timestamp columns. IDs are UUIDv7 so they
// sort by creation time.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

// Course is a minimal projection of the course catalog owned by a sibling
// service. Only the fields the finance domain needs are kept here.
type Course struct {
	Base
	Title     string          `gorm:"size:255;not null" json:"title"`
	Slug      string          `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	TeacherID uuid.UUID       `gorm:"type:uuid;index;not null" json:"teacher_id"`
	Price     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Published bool            `gorm:"default:false" json:"published"`
}

// Payment is one purchase attempt. Amount is the amount actually charged
// (after any coupon discount). GatewayFee, GatewayTax and NetAmount are
// frozen at completion time and never recomputed afterwards.
type Payment struct {
	Base
	UserID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	CourseID uuid.UUID       `gorm:"type:uuid;index;not null" json:"course_id"`
	Course   *Course         `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Amount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Status   string          `gorm:"size:16;index;default:pending" json:"status"`

	GatewayFee *decimal.Decimal `gorm:"type:numeric(10,2)" json:"gateway_fee,omitempty"`
	GatewayTax *decimal.Decimal `gorm:"type:numeric(10,2)" json:"gateway_tax,omitempty"`
	NetAmount  *decimal.Decimal `gorm:"type:numeric(10,2)" json:"net_amount,omitempty"`

	// CustomerEmail is the checkout contact address, used for receipts.
	CustomerEmail string `gorm:"size:255" json:"customer_email,omitempty"`

	RazorpayOrderID   string `gorm:"size:64;uniqueIndex" json:"razorpay_order_id"`
	RazorpayPaymentID string `gorm:"size:64;index" json:"razorpay_payment_id"`
	Receipt           string `gorm:"size:64" json:"receipt"`

	// MethodDetails holds AES-256-GCM encrypted payment method metadata
	// (card last4, UPI id, bank). Never stored in plaintext.
	MethodDetails string `gorm:"type:text" json:"-"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Coupon is a discount code created either by a platform admin or by a
// teacher for their own courses.
type Coupon struct {
	Base
	Code              string           `gorm:"size:32;uniqueIndex;not null" json:"code"`
	DiscountType      string           `gorm:"size:16;not null" json:"discount_type"`
	DiscountValue     decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"discount_value"`
	MaxDiscountAmount *decimal.Decimal `gorm:"type:numeric(10,2)" json:"max_discount_amount,omitempty"`

	CreatorType string     `gorm:"size:16;not null" json:"creator_type"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;index;not null" json:"created_by_id"`
	CourseID    *uuid.UUID `gorm:"type:uuid;index" json:"course_id,omitempty"`

	// AssignedTeacherID marks a platform-created coupon whose discount is
	// credited to a specific teacher instead of being absorbed by the
	// platform.
	AssignedTeacherID *uuid.UUID `gorm:"type:uuid;index" json:"assigned_teacher_id,omitempty"`

	ValidFrom  time.Time `gorm:"not null" json:"valid_from"`
	ValidUntil time.Time `gorm:"not null" json:"valid_until"`

	UsageLimit   *int `json:"usage_limit,omitempty"`
	UsedCount    int  `gorm:"default:0" json:"used_count"`
	PerUserLimit *int `json:"per_user_limit,omitempty"`

	Active bool `gorm:"default:true;index" json:"active"`
}

// ComputeDiscount applies the coupon rule to a pre-discount amount. The
// result honors the max discount cap and never exceeds the amount itself.
func (c *Coupon) ComputeDiscount(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case DiscountFixed:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}

	if c.MaxDiscountAmount != nil && d.GreaterThan(*c.MaxDiscountAmount) {
		d = *c.MaxDiscountAmount
	}
	if d.GreaterThan(amount) {
		d = amount
	}
	return d
}

// CouponUsage records one redemption. DiscountAmount is frozen at
// redemption time and is the only source of truth for the discount in
// later commission math.
type CouponUsage struct {
	Base
	CouponID  uuid.UUID `gorm:"type:uuid;index;not null" json:"coupon_id"`
	Coupon    *Coupon   `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
	PaymentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"payment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	OriginalAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"original_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"discount_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"final_amount"`

	// Filled in by the commission recorder when the discount is credited
	// to a teacher.
	ExtraCommissionEarned *decimal.Decimal `gorm:"type:numeric(10,2)" json:"extra_commission_earned,omitempty"`
	CommissionRecipientID *uuid.UUID       `gorm:"type:uuid" json:"commission_recipient_id,omitempty"`
}

// CourseAssignment links a teacher to a course. CommissionPercentage, when
// set, overrides the platform default commission rate for sales of this
// course by this teacher.
type CourseAssignment struct {
	Base
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_teacher" json:"course_id"`
	TeacherID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_course_teacher" json:"teacher_id"`
	Status    string    `gorm:"size:16;default:assigned" json:"status"`

	CommissionPercentage *decimal.Decimal `gorm:"type:numeric(5,2)" json:"commission_percentage,omitempty"`
}

// CommissionRecord is the idempotency anchor of the engine: exactly one row
// per completed payment, enforced by the unique index on PaymentID.
type CommissionRecord struct {
	Base
	PaymentID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"payment_id"`
	Payment   *Payment  `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	CourseID  uuid.UUID `gorm:"type:uuid;index;not null" json:"course_id"`
	TeacherID uuid.UUID `gorm:"type:uuid;index;not null" json:"teacher_id"`

	Scenario       string          `gorm:"size:24;not null" json:"scenario"`
	CommissionRate decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"commission_rate"`

	PlatformCommission decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"platform_commission"`
	TeacherRevenue     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"teacher_revenue"`
	ExtraCommission    decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"extra_commission"`
	ExtraRecipientID   *uuid.UUID      `gorm:"type:uuid" json:"extra_recipient_id,omitempty"`
}

// TeacherCommission is the running ledger for one teacher. The balance is
// always derived, never stored.
type TeacherCommission struct {
	Base
	TeacherID   uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"teacher_id"`
	TotalEarned decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_earned"`
	TotalPaid   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_paid"`
	LastPayoutAt *time.Time     `json:"last_payout_at,omitempty"`
}

// RemainingBalance returns total earned minus total paid out.
func (t *TeacherCommission) RemainingBalance() decimal.Decimal {
	return t.TotalEarned.Sub(t.TotalPaid)
}

// PayoutTransaction records one transfer of earned commission to a teacher.
type PayoutTransaction struct {
	Base
	TeacherID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"teacher_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status        string          `gorm:"size:16;index;default:pending" json:"status"`
	ProcessedByID uuid.UUID       `gorm:"type:uuid;not null" json:"processed_by_id"`

	// BankReference is AES-256-GCM encrypted.
	BankReference string `gorm:"type:text" json:"-"`
	Notes         string `gorm:"type:text" json:"notes"`

	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
