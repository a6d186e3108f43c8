package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/store"
)

// Store is the persistence surface the engine needs. The production
// implementation is gorm-backed; tests use an in-memory fake.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetPaymentForUpdate(ctx context.Context, paymentID uuid.UUID) (*store.Payment, error)
	SavePaymentFees(ctx context.Context, paymentID uuid.UUID, fee, tax, net decimal.Decimal) error

	GetCourse(ctx context.Context, courseID uuid.UUID) (*store.Course, error)
	GetAssignment(ctx context.Context, courseID, teacherID uuid.UUID) (*store.CourseAssignment, error)

	GetCoupon(ctx context.Context, couponID uuid.UUID) (*store.Coupon, error)
	GetCouponUsageByPayment(ctx context.Context, paymentID uuid.UUID) (*store.CouponUsage, error)
	SetCouponUsageCommission(ctx context.Context, usageID uuid.UUID, extra decimal.Decimal, recipientID *uuid.UUID) error

	GetCommissionRecordByPayment(ctx context.Context, paymentID uuid.UUID) (*store.CommissionRecord, error)
	CreateCommissionRecord(ctx context.Context, rec *store.CommissionRecord) error
	ListCommissionRecordsByTeacher(ctx context.Context, teacherID uuid.UUID, limit int) ([]store.CommissionRecord, error)
	ListCommissionRecords(ctx context.Context, from, to time.Time) ([]store.CommissionRecord, error)
	SumCommissionByTeacher(ctx context.Context, teacherID uuid.UUID) (decimal.Decimal, error)

	CreditTeacher(ctx context.Context, teacherID uuid.UUID, amount decimal.Decimal) error
	GetLedger(ctx context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error)
	GetLedgerForUpdate(ctx context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error)
	DebitTeacher(ctx context.Context, teacherID uuid.UUID, amount decimal.Decimal, at time.Time) error
	SetLedgerEarned(ctx context.Context, teacherID uuid.UUID, total decimal.Decimal) error
	ListLedgers(ctx context.Context) ([]store.TeacherCommission, error)

	CreatePayout(ctx context.Context, p *store.PayoutTransaction) error
	ListPayouts(ctx context.Context, teacherID *uuid.UUID, limit int) ([]store.PayoutTransaction, error)
}

// gormStore adapts *store.Store to the Store interface, mainly to rebind
// the transaction callback type.
type gormStore struct {
	*store.Store
}

// NewStore wraps the gorm data layer for use by the engine.
func NewStore(st *store.Store) Store {
	return gormStore{st}
}

func (g gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return g.Store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormStore{tx})
	})
}
