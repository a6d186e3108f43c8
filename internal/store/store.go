package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: record not found")

// Store is the gorm-backed data access layer shared by the finance engine
// and the maintenance commands.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying gorm handle for services that query directly.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// WithTx runs fn inside a database transaction. The Store passed to fn is
// bound to that transaction; any error rolls the whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- payments ---

// GetPaymentForUpdate loads a payment and takes a row lock on it. Must be
// called inside WithTx; the lock serializes concurrent recorders for the
// same payment.
func (s *Store) GetPaymentForUpdate(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	var p Payment
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", paymentID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

// SavePaymentFees freezes the fee breakdown on a payment row.
func (s *Store) SavePaymentFees(ctx context.Context, paymentID uuid.UUID, fee, tax, net decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"gateway_fee": fee,
			"gateway_tax": tax,
			"net_amount":  net,
		}).Error
}

// ListCompletedPaymentsByCourseTeacher returns completed payments for
// courses taught by the given teacher, oldest first.
func (s *Store) ListCompletedPaymentsByCourseTeacher(ctx context.Context, teacherID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := s.db.WithContext(ctx).
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("courses.teacher_id = ? AND payments.status = ?", teacherID, PaymentCompleted).
		Order("payments.created_at ASC").
		Find(&payments).Error
	return payments, err
}

// --- courses and assignments ---

func (s *Store) GetCourse(ctx context.Context, courseID uuid.UUID) (*Course, error) {
	var c Course
	if err := s.db.WithContext(ctx).First(&c, "id = ?", courseID).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

func (s *Store) GetAssignment(ctx context.Context, courseID, teacherID uuid.UUID) (*CourseAssignment, error) {
	var a CourseAssignment
	err := s.db.WithContext(ctx).
		First(&a, "course_id = ? AND teacher_id = ?", courseID, teacherID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &a, nil
}

// --- coupons ---

func (s *Store) GetCoupon(ctx context.Context, couponID uuid.UUID) (*Coupon, error) {
	var c Coupon
	if err := s.db.WithContext(ctx).First(&c, "id = ?", couponID).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

// GetCouponByCode loads a coupon by its normalized code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon
	if err := s.db.WithContext(ctx).First(&c, "code = ?", code).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

// CountCompletedRedemptions counts redemptions of a coupon whose payment
// actually completed, optionally for one user. Pending and failed payments
// do not consume usage limits.
func (s *Store) CountCompletedRedemptions(ctx context.Context, couponID uuid.UUID, userID *uuid.UUID) (int64, error) {
	q := s.db.WithContext(ctx).Model(&CouponUsage{}).
		Joins("JOIN payments ON payments.id = coupon_usages.payment_id").
		Where("coupon_usages.coupon_id = ? AND payments.status = ?", couponID, PaymentCompleted)
	if userID != nil {
		q = q.Where("coupon_usages.user_id = ?", *userID)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (s *Store) CreateCoupon(ctx context.Context, c *Coupon) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// DeactivateCoupon turns a coupon off. Returns ErrNotFound when no such
// coupon exists.
func (s *Store) DeactivateCoupon(ctx context.Context, couponID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("id = ?", couponID).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTeacherCouponIDs returns the ids of coupons a teacher created.
func (s *Store) ListTeacherCouponIDs(ctx context.Context, teacherID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&Coupon{}).
		Where("creator_type = ? AND created_by_id = ?", CreatorTeacher, teacherID).
		Pluck("id", &ids).Error
	return ids, err
}

// AggregateCouponUsage sums redemption count and total discount across the
// given coupons.
func (s *Store) AggregateCouponUsage(ctx context.Context, couponIDs []uuid.UUID) (int64, decimal.Decimal, error) {
	if len(couponIDs) == 0 {
		return 0, decimal.Zero, nil
	}
	var agg struct {
		Count int64
		Total decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).Model(&CouponUsage{}).
		Select("COUNT(*) AS count, SUM(discount_amount) AS total").
		Where("coupon_id IN ?", couponIDs).
		Scan(&agg).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	total := decimal.Zero
	if agg.Total.Valid {
		total = agg.Total.Decimal
	}
	return agg.Count, total, nil
}

// GetCouponUsageByPayment returns the redemption tied to a payment, or
// ErrNotFound when the payment was made without a coupon.
func (s *Store) GetCouponUsageByPayment(ctx context.Context, paymentID uuid.UUID) (*CouponUsage, error) {
	var u CouponUsage
	err := s.db.WithContext(ctx).First(&u, "payment_id = ?", paymentID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

// SetCouponUsageCommission stores the discount accounted by the recorder
// and who it was credited to. A nil recipient means the platform kept it.
func (s *Store) SetCouponUsageCommission(ctx context.Context, usageID uuid.UUID, extra decimal.Decimal, recipientID *uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&CouponUsage{}).
		Where("id = ?", usageID).
		Updates(map[string]any{
			"extra_commission_earned": extra,
			"commission_recipient_id": recipientID,
		}).Error
}

// --- commission records ---

func (s *Store) GetCommissionRecordByPayment(ctx context.Context, paymentID uuid.UUID) (*CommissionRecord, error) {
	var r CommissionRecord
	err := s.db.WithContext(ctx).First(&r, "payment_id = ?", paymentID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &r, nil
}

func (s *Store) CreateCommissionRecord(ctx context.Context, rec *CommissionRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// ListCommissionRecordsByTeacher returns a teacher's records, newest first.
func (s *Store) ListCommissionRecordsByTeacher(ctx context.Context, teacherID uuid.UUID, limit int) ([]CommissionRecord, error) {
	var recs []CommissionRecord
	q := s.db.WithContext(ctx).
		Where("teacher_id = ? OR extra_recipient_id = ?", teacherID, teacherID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// ListCommissionRecords returns all records in [from, to), oldest first,
// with payment and course preloaded for reporting.
func (s *Store) ListCommissionRecords(ctx context.Context, from, to time.Time) ([]CommissionRecord, error) {
	var recs []CommissionRecord
	q := s.db.WithContext(ctx).Preload("Payment").Preload("Payment.Course")
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	err := q.Order("created_at ASC").Find(&recs).Error
	return recs, err
}

// SumCommissionByTeacher computes what a teacher's ledger should hold:
// teacher revenue on their courses plus extra commission credited to them.
func (s *Store) SumCommissionByTeacher(ctx context.Context, teacherID uuid.UUID) (decimal.Decimal, error) {
	var revenue, extra decimal.NullDecimal

	err := s.db.WithContext(ctx).Model(&CommissionRecord{}).
		Select("SUM(teacher_revenue)").
		Where("teacher_id = ?", teacherID).
		Scan(&revenue).Error
	if err != nil {
		return decimal.Zero, err
	}

	err = s.db.WithContext(ctx).Model(&CommissionRecord{}).
		Select("SUM(extra_commission)").
		Where("extra_recipient_id = ?", teacherID).
		Scan(&extra).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	if revenue.Valid {
		total = total.Add(revenue.Decimal)
	}
	if extra.Valid {
		total = total.Add(extra.Decimal)
	}
	return total, nil
}

// --- teacher ledger ---

// CreditTeacher adds amount to a teacher's total_earned with an atomic
// upsert: insert the ledger row if missing, otherwise increment in place.
// Safe under concurrent credits without a prior SELECT.
func (s *Store) CreditTeacher(ctx context.Context, teacherID uuid.UUID, amount decimal.Decimal) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	ledger := TeacherCommission{
		Base:        Base{ID: id},
		TeacherID:   teacherID,
		TotalEarned: amount,
		TotalPaid:   decimal.Zero,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "teacher_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_earned": gorm.Expr("teacher_commissions.total_earned + ?", amount),
			"updated_at":   gorm.Expr("NOW()"),
		}),
	}).Create(&ledger).Error
}

// GetLedger returns a teacher's ledger row without locking it.
func (s *Store) GetLedger(ctx context.Context, teacherID uuid.UUID) (*TeacherCommission, error) {
	var t TeacherCommission
	if err := s.db.WithContext(ctx).First(&t, "teacher_id = ?", teacherID).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

// GetLedgerForUpdate loads a teacher's ledger with a row lock. Must be
// called inside WithTx; concurrent payouts for the same teacher serialize
// on this lock.
func (s *Store) GetLedgerForUpdate(ctx context.Context, teacherID uuid.UUID) (*TeacherCommission, error) {
	var t TeacherCommission
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "teacher_id = ?", teacherID).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

// DebitTeacher records a payout against the ledger. Callers must hold the
// row lock via GetLedgerForUpdate and have checked the balance.
func (s *Store) DebitTeacher(ctx context.Context, teacherID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	return s.db.WithContext(ctx).Model(&TeacherCommission{}).
		Where("teacher_id = ?", teacherID).
		Updates(map[string]any{
			"total_paid":     gorm.Expr("total_paid + ?", amount),
			"last_payout_at": at,
		}).Error
}

// SetLedgerEarned overwrites total_earned. Used only by reconciliation.
func (s *Store) SetLedgerEarned(ctx context.Context, teacherID uuid.UUID, total decimal.Decimal) error {
	return s.db.WithContext(ctx).Model(&TeacherCommission{}).
		Where("teacher_id = ?", teacherID).
		Update("total_earned", total).Error
}

// ListLedgers returns all teacher ledgers.
func (s *Store) ListLedgers(ctx context.Context) ([]TeacherCommission, error) {
	var ledgers []TeacherCommission
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&ledgers).Error
	return ledgers, err
}

// --- payouts ---

func (s *Store) CreatePayout(ctx context.Context, p *PayoutTransaction) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// ListPayouts returns payouts, newest first, optionally filtered by teacher.
func (s *Store) ListPayouts(ctx context.Context, teacherID *uuid.UUID, limit int) ([]PayoutTransaction, error) {
	var payouts []PayoutTransaction
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if teacherID != nil {
		q = q.Where("teacher_id = ?", *teacherID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&payouts).Error
	return payouts, err
}
