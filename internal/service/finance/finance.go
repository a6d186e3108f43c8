// Package finance implements the commission and fee distribution engine:
// fee decomposition of completed payments, the platform/teacher revenue
// split, exactly-once commission recording, and the teacher payout ledger.
package finance

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/crypto"
)

// SubjectPayoutProcessed is the NATS subject prefix for payout events.
const SubjectPayoutProcessed = "dhwani.payout.processed"

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// RecordCommission distributes a completed payment's net amount into
	// the commission record and teacher ledger. Exactly-once per payment:
	// a repeat call is a silent no-op.
	RecordCommission(ctx context.Context, paymentID uuid.UUID) error

	// ResolveCommissionRate returns the platform commission percentage for
	// a course/teacher pair: assignment override, else configured default,
	// else zero. A malformed configured rate is an error, never zero.
	ResolveCommissionRate(ctx context.Context, courseID, teacherID uuid.UUID) (decimal.Decimal, error)

	// Balance returns a teacher's ledger. Teachers without sales get a
	// zero ledger, not an error.
	Balance(ctx context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error)

	// Earnings returns a teacher's ledger together with recent records.
	Earnings(ctx context.Context, teacherID uuid.UUID) (*EarningsSummary, error)

	// ProcessPayout debits a teacher's balance and records the transfer.
	// Fails with ErrInsufficientBalance when amount exceeds the balance;
	// a payout of exactly the balance succeeds.
	ProcessPayout(ctx context.Context, in PayoutInput) (*store.PayoutTransaction, error)

	ListPayouts(ctx context.Context, teacherID *uuid.UUID, limit int) ([]store.PayoutTransaction, error)

	// ExportEarningsCSV writes all commission records in [from, to) as CSV.
	ExportEarningsCSV(ctx context.Context, w io.Writer, from, to time.Time) error

	// Reconcile compares each ledger against the sum of its commission
	// records and optionally repairs drift.
	Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error)
}

// PayoutInput describes one payout request made by an admin.
type PayoutInput struct {
	TeacherID     uuid.UUID
	Amount        decimal.Decimal
	ProcessedByID uuid.UUID
	BankReference string
	Notes         string
	// NotifyEmail, when set, is carried on the payout event so the email
	// worker can notify the teacher. User profiles live in the identity
	// service, not here.
	NotifyEmail string
}

// EarningsSummary is the dashboard view of a teacher's earnings.
type EarningsSummary struct {
	TeacherID        uuid.UUID                `json:"teacher_id"`
	TotalEarned      decimal.Decimal          `json:"total_earned"`
	TotalPaid        decimal.Decimal          `json:"total_paid"`
	RemainingBalance decimal.Decimal          `json:"remaining_balance"`
	RecentRecords    []store.CommissionRecord `json:"recent_records"`
}

// ReconcileOptions filters and controls a reconciliation run.
type ReconcileOptions struct {
	TeacherID *uuid.UUID
	DryRun    bool
}

// ReconcileEntry is the outcome for one teacher's ledger.
type ReconcileEntry struct {
	TeacherID      uuid.UUID       `json:"teacher_id"`
	LedgerEarned   decimal.Decimal `json:"ledger_earned"`
	ExpectedEarned decimal.Decimal `json:"expected_earned"`
	Drift          decimal.Decimal `json:"drift"`
	Fixed          bool            `json:"fixed"`
}

// ReconcileReport summarizes a reconciliation run.
type ReconcileReport struct {
	Checked    int              `json:"checked"`
	DriftCount int              `json:"drift_count"`
	Entries    []ReconcileEntry `json:"entries"`
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type financeService struct {
	st     Store
	cfg    config.CommissionConfig
	aesKey []byte
	nc     *nats.Conn
	logger *slog.Logger
}

// New builds the engine. aesKey encrypts payout bank references at rest
// and may be nil in development. nc may be nil when events are disabled.
func New(st Store, cfg config.CommissionConfig, aesKey []byte, nc *nats.Conn, logger *slog.Logger) Service {
	return &financeService{st: st, cfg: cfg, aesKey: aesKey, nc: nc, logger: logger}
}

// ---------------------------------------------------------------------------
// Recording
// ---------------------------------------------------------------------------

func (s *financeService) RecordCommission(ctx context.Context, paymentID uuid.UUID) error {
	return s.st.WithTx(ctx, func(tx Store) error {
		p, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("load payment: %w", err)
		}
		if p.Status != store.PaymentCompleted {
			return ErrPaymentNotCompleted
		}

		// The unique index on commission_records.payment_id is the hard
		// guarantee; the row lock above makes the check-then-insert safe.
		if _, err := tx.GetCommissionRecordByPayment(ctx, paymentID); err == nil {
			s.logger.DebugContext(ctx, "commission already recorded",
				slog.String("payment_id", paymentID.String()))
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check existing record: %w", err)
		}

		// Freeze the fee breakdown if completion predates fee capture.
		var net decimal.Decimal
		if p.NetAmount == nil {
			fees, err := ComputeFees(p.Amount)
			if err != nil {
				return err
			}
			if err := tx.SavePaymentFees(ctx, p.ID, fees.GatewayFee, fees.GatewayTax, fees.NetAmount); err != nil {
				return fmt.Errorf("freeze fees: %w", err)
			}
			net = fees.NetAmount
		} else {
			net = *p.NetAmount
		}

		course, err := tx.GetCourse(ctx, p.CourseID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("load course: %w", err)
		}

		rate, err := s.resolveRate(ctx, tx, course.ID, course.TeacherID)
		if err != nil {
			return err
		}

		scenario, discount, recipientID, usage, err := s.resolveScenario(ctx, tx, p, course)
		if err != nil {
			return err
		}

		split, err := CalculateSplit(net, rate, discount, scenario)
		if err != nil {
			return err
		}

		rec := &store.CommissionRecord{
			PaymentID:          p.ID,
			CourseID:           course.ID,
			TeacherID:          course.TeacherID,
			Scenario:           scenario,
			CommissionRate:     rate,
			PlatformCommission: split.PlatformCommission,
			TeacherRevenue:     split.TeacherRevenue,
			ExtraCommission:    split.ExtraCommission,
		}
		if split.ExtraCommission.IsPositive() {
			rec.ExtraRecipientID = recipientID
		}
		if err := tx.CreateCommissionRecord(ctx, rec); err != nil {
			return fmt.Errorf("create commission record: %w", err)
		}

		if err := tx.CreditTeacher(ctx, course.TeacherID, split.TeacherRevenue); err != nil {
			return fmt.Errorf("credit teacher revenue: %w", err)
		}
		if split.ExtraCommission.IsPositive() {
			// Only a teacher beneficiary gets a ledger credit; with a nil
			// recipient the platform kept the discount and the usage row
			// just records that.
			if recipientID != nil {
				if err := tx.CreditTeacher(ctx, *recipientID, split.ExtraCommission); err != nil {
					return fmt.Errorf("credit extra commission: %w", err)
				}
			}
			if usage != nil {
				if err := tx.SetCouponUsageCommission(ctx, usage.ID, split.ExtraCommission, recipientID); err != nil {
					return fmt.Errorf("update coupon usage: %w", err)
				}
			}
		}

		s.logger.InfoContext(ctx, "commission recorded",
			slog.String("payment_id", p.ID.String()),
			slog.String("teacher_id", course.TeacherID.String()),
			slog.String("scenario", scenario),
			slog.String("rate", rate.String()),
			slog.String("platform", split.PlatformCommission.String()),
			slog.String("teacher", split.TeacherRevenue.String()),
			slog.String("extra", split.ExtraCommission.String()),
		)
		return nil
	})
}

func (s *financeService) ResolveCommissionRate(ctx context.Context, courseID, teacherID uuid.UUID) (decimal.Decimal, error) {
	return s.resolveRate(ctx, s.st, courseID, teacherID)
}

func (s *financeService) resolveRate(ctx context.Context, st Store, courseID, teacherID uuid.UUID) (decimal.Decimal, error) {
	assignment, err := st.GetAssignment(ctx, courseID, teacherID)
	switch {
	case err == nil:
		if assignment.CommissionPercentage != nil {
			rate := *assignment.CommissionPercentage
			if rate.IsNegative() || rate.GreaterThan(hundred) {
				return decimal.Zero, ErrInvalidRate
			}
			return rate, nil
		}
	case errors.Is(err, store.ErrNotFound):
		// no assignment, fall through to the default
	default:
		return decimal.Zero, fmt.Errorf("load assignment: %w", err)
	}

	if s.cfg.DefaultRatePercent == "" {
		return decimal.Zero, nil
	}
	return ParseRate(s.cfg.DefaultRatePercent)
}

// resolveScenario decides who funded the coupon discount, if any. The
// discount is always taken from the persisted redemption; only when that
// value is missing is it recomputed from the coupon rule against the
// pre-discount amount.
func (s *financeService) resolveScenario(ctx context.Context, tx Store, p *store.Payment, course *store.Course) (scenario string, discount decimal.Decimal, recipientID *uuid.UUID, usage *store.CouponUsage, err error) {
	usage, err = tx.GetCouponUsageByPayment(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ScenarioNormal, decimal.Zero, nil, nil, nil
	}
	if err != nil {
		return "", decimal.Zero, nil, nil, fmt.Errorf("load coupon usage: %w", err)
	}

	coupon, err := tx.GetCoupon(ctx, usage.CouponID)
	if err != nil {
		return "", decimal.Zero, nil, nil, fmt.Errorf("load coupon: %w", err)
	}

	discount = usage.DiscountAmount
	if discount.IsZero() {
		discount = coupon.ComputeDiscount(usage.OriginalAmount)
	}

	switch {
	case coupon.CreatorType == store.CreatorTeacher:
		recipient := coupon.CreatedByID
		return ScenarioTeacherCoupon, discount, &recipient, usage, nil
	case coupon.CreatorType == store.CreatorPlatformAdmin && coupon.AssignedTeacherID != nil:
		return ScenarioTeacherCoupon, discount, coupon.AssignedTeacherID, usage, nil
	case coupon.CreatorType == store.CreatorPlatformAdmin:
		return ScenarioPlatformCoupon, discount, nil, usage, nil
	default:
		s.logger.WarnContext(ctx, "ambiguous coupon creator type, treating payment as normal",
			slog.String("payment_id", p.ID.String()),
			slog.String("coupon_id", coupon.ID.String()),
			slog.String("creator_type", coupon.CreatorType),
		)
		return ScenarioNormal, decimal.Zero, nil, usage, nil
	}
}

// ---------------------------------------------------------------------------
// Ledger and payouts
// ---------------------------------------------------------------------------

func (s *financeService) Balance(ctx context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error) {
	ledger, err := s.st.GetLedger(ctx, teacherID)
	if errors.Is(err, store.ErrNotFound) {
		return &store.TeacherCommission{
			TeacherID:   teacherID,
			TotalEarned: decimal.Zero,
			TotalPaid:   decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

func (s *financeService) Earnings(ctx context.Context, teacherID uuid.UUID) (*EarningsSummary, error) {
	ledger, err := s.Balance(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	records, err := s.st.ListCommissionRecordsByTeacher(ctx, teacherID, 20)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return &EarningsSummary{
		TeacherID:        teacherID,
		TotalEarned:      ledger.TotalEarned,
		TotalPaid:        ledger.TotalPaid,
		RemainingBalance: ledger.RemainingBalance(),
		RecentRecords:    records,
	}, nil
}

func (s *financeService) ProcessPayout(ctx context.Context, in PayoutInput) (*store.PayoutTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var payout *store.PayoutTransaction
	err := s.st.WithTx(ctx, func(tx Store) error {
		ledger, err := tx.GetLedgerForUpdate(ctx, in.TeacherID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrLedgerNotFound
			}
			return fmt.Errorf("lock ledger: %w", err)
		}

		if in.Amount.GreaterThan(ledger.RemainingBalance()) {
			return ErrInsufficientBalance
		}

		now := time.Now().UTC()
		if err := tx.DebitTeacher(ctx, in.TeacherID, in.Amount, now); err != nil {
			return fmt.Errorf("debit ledger: %w", err)
		}

		bankRef := in.BankReference
		if bankRef != "" && len(s.aesKey) == 32 {
			enc, err := crypto.Encrypt(s.aesKey, bankRef)
			if err != nil {
				return fmt.Errorf("encrypt bank reference: %w", err)
			}
			bankRef = enc
		}

		payout = &store.PayoutTransaction{
			TeacherID:     in.TeacherID,
			Amount:        in.Amount,
			Status:        store.PayoutCompleted,
			ProcessedByID: in.ProcessedByID,
			BankReference: bankRef,
			Notes:         in.Notes,
			ProcessedAt:   &now,
		}
		return tx.CreatePayout(ctx, payout)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payout processed",
		slog.String("payout_id", payout.ID.String()),
		slog.String("teacher_id", in.TeacherID.String()),
		slog.String("amount", in.Amount.String()),
	)
	s.publishPayoutEvent(payout, in.NotifyEmail)

	return payout, nil
}

func (s *financeService) ListPayouts(ctx context.Context, teacherID *uuid.UUID, limit int) ([]store.PayoutTransaction, error) {
	return s.st.ListPayouts(ctx, teacherID, limit)
}

func (s *financeService) publishPayoutEvent(p *store.PayoutTransaction, notifyEmail string) {
	if s.nc == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"payout_id":    p.ID,
		"teacher_id":   p.TeacherID,
		"amount":       p.Amount,
		"status":       p.Status,
		"notify_email": notifyEmail,
	})
	if err != nil {
		return
	}
	subject := SubjectPayoutProcessed + "." + p.ID.String()
	if err := s.nc.Publish(subject, payload); err != nil {
		s.logger.Warn("publish payout event failed",
			slog.String("subject", subject), slog.Any("error", err))
	}
}

// ---------------------------------------------------------------------------
// Reporting and reconciliation
// ---------------------------------------------------------------------------

func (s *financeService) ExportEarningsCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	records, err := s.st.ListCommissionRecords(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"record_id", "payment_id", "course_id", "teacher_id", "scenario",
		"commission_rate", "platform_commission", "teacher_revenue",
		"extra_commission", "extra_recipient_id", "created_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		recipient := ""
		if r.ExtraRecipientID != nil {
			recipient = r.ExtraRecipientID.String()
		}
		row := []string{
			r.ID.String(),
			r.PaymentID.String(),
			r.CourseID.String(),
			r.TeacherID.String(),
			r.Scenario,
			r.CommissionRate.StringFixed(2),
			r.PlatformCommission.StringFixed(2),
			r.TeacherRevenue.StringFixed(2),
			r.ExtraCommission.StringFixed(2),
			recipient,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *financeService) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileReport, error) {
	var ledgers []store.TeacherCommission
	if opts.TeacherID != nil {
		ledger, err := s.st.GetLedger(ctx, *opts.TeacherID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrLedgerNotFound
			}
			return nil, err
		}
		ledgers = []store.TeacherCommission{*ledger}
	} else {
		var err error
		ledgers, err = s.st.ListLedgers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list ledgers: %w", err)
		}
	}

	report := &ReconcileReport{Checked: len(ledgers)}
	for _, ledger := range ledgers {
		expected, err := s.st.SumCommissionByTeacher(ctx, ledger.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("sum records for %s: %w", ledger.TeacherID, err)
		}

		entry := ReconcileEntry{
			TeacherID:      ledger.TeacherID,
			LedgerEarned:   ledger.TotalEarned,
			ExpectedEarned: expected,
			Drift:          ledger.TotalEarned.Sub(expected),
		}

		if !entry.Drift.IsZero() {
			report.DriftCount++
			s.logger.WarnContext(ctx, "ledger drift detected",
				slog.String("teacher_id", ledger.TeacherID.String()),
				slog.String("ledger", ledger.TotalEarned.String()),
				slog.String("expected", expected.String()),
			)
			if !opts.DryRun {
				if err := s.st.SetLedgerEarned(ctx, ledger.TeacherID, expected); err != nil {
					return nil, fmt.Errorf("fix ledger for %s: %w", ledger.TeacherID, err)
				}
				entry.Fixed = true
			}
		}
		report.Entries = append(report.Entries, entry)
	}

	return report, nil
}
