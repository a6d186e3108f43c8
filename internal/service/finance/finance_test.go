package finance

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
)

// memStore is an in-memory Store used to exercise the engine without a
// database. Single-goroutine tests only; no locking is simulated.
type memStore struct {
	payments    map[uuid.UUID]*store.Payment
	courses     map[uuid.UUID]*store.Course
	assignments map[string]*store.CourseAssignment
	coupons     map[uuid.UUID]*store.Coupon
	usages      map[uuid.UUID]*store.CouponUsage // keyed by payment id
	records     map[uuid.UUID]*store.CommissionRecord
	ledgers     map[uuid.UUID]*store.TeacherCommission
	payouts     []*store.PayoutTransaction
}

func newMemStore() *memStore {
	return &memStore{
		payments:    map[uuid.UUID]*store.Payment{},
		courses:     map[uuid.UUID]*store.Course{},
		assignments: map[string]*store.CourseAssignment{},
		coupons:     map[uuid.UUID]*store.Coupon{},
		usages:      map[uuid.UUID]*store.CouponUsage{},
		records:     map[uuid.UUID]*store.CommissionRecord{},
		ledgers:     map[uuid.UUID]*store.TeacherCommission{},
	}
}

func assignKey(courseID, teacherID uuid.UUID) string {
	return courseID.String() + "/" + teacherID.String()
}

func (m *memStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return fn(m)
}

func (m *memStore) GetPaymentForUpdate(_ context.Context, id uuid.UUID) (*store.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) SavePaymentFees(_ context.Context, id uuid.UUID, fee, tax, net decimal.Decimal) error {
	p, ok := m.payments[id]
	if !ok {
		return store.ErrNotFound
	}
	p.GatewayFee, p.GatewayTax, p.NetAmount = &fee, &tax, &net
	return nil
}

func (m *memStore) GetCourse(_ context.Context, id uuid.UUID) (*store.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetAssignment(_ context.Context, courseID, teacherID uuid.UUID) (*store.CourseAssignment, error) {
	a, ok := m.assignments[assignKey(courseID, teacherID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (m *memStore) GetCoupon(_ context.Context, id uuid.UUID) (*store.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetCouponUsageByPayment(_ context.Context, paymentID uuid.UUID) (*store.CouponUsage, error) {
	u, ok := m.usages[paymentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) SetCouponUsageCommission(_ context.Context, usageID uuid.UUID, extra decimal.Decimal, recipientID *uuid.UUID) error {
	for _, u := range m.usages {
		if u.ID == usageID {
			u.ExtraCommissionEarned = &extra
			u.CommissionRecipientID = recipientID
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) GetCommissionRecordByPayment(_ context.Context, paymentID uuid.UUID) (*store.CommissionRecord, error) {
	r, ok := m.records[paymentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (m *memStore) CreateCommissionRecord(_ context.Context, rec *store.CommissionRecord) error {
	if _, exists := m.records[rec.PaymentID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = time.Now()
	m.records[rec.PaymentID] = rec
	return nil
}

func (m *memStore) ListCommissionRecordsByTeacher(_ context.Context, teacherID uuid.UUID, limit int) ([]store.CommissionRecord, error) {
	var out []store.CommissionRecord
	for _, r := range m.records {
		if r.TeacherID == teacherID || (r.ExtraRecipientID != nil && *r.ExtraRecipientID == teacherID) {
			out = append(out, *r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListCommissionRecords(_ context.Context, from, to time.Time) ([]store.CommissionRecord, error) {
	var out []store.CommissionRecord
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) SumCommissionByTeacher(_ context.Context, teacherID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.records {
		if r.TeacherID == teacherID {
			total = total.Add(r.TeacherRevenue)
		}
		if r.ExtraRecipientID != nil && *r.ExtraRecipientID == teacherID {
			total = total.Add(r.ExtraCommission)
		}
	}
	return total, nil
}

func (m *memStore) CreditTeacher(_ context.Context, teacherID uuid.UUID, amount decimal.Decimal) error {
	ledger, ok := m.ledgers[teacherID]
	if !ok {
		m.ledgers[teacherID] = &store.TeacherCommission{
			Base:        store.Base{ID: uuid.New()},
			TeacherID:   teacherID,
			TotalEarned: amount,
			TotalPaid:   decimal.Zero,
		}
		return nil
	}
	ledger.TotalEarned = ledger.TotalEarned.Add(amount)
	return nil
}

func (m *memStore) GetLedger(_ context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error) {
	l, ok := m.ledgers[teacherID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return l, nil
}

func (m *memStore) GetLedgerForUpdate(ctx context.Context, teacherID uuid.UUID) (*store.TeacherCommission, error) {
	return m.GetLedger(ctx, teacherID)
}

func (m *memStore) DebitTeacher(_ context.Context, teacherID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	l, ok := m.ledgers[teacherID]
	if !ok {
		return store.ErrNotFound
	}
	l.TotalPaid = l.TotalPaid.Add(amount)
	l.LastPayoutAt = &at
	return nil
}

func (m *memStore) SetLedgerEarned(_ context.Context, teacherID uuid.UUID, total decimal.Decimal) error {
	l, ok := m.ledgers[teacherID]
	if !ok {
		return store.ErrNotFound
	}
	l.TotalEarned = total
	return nil
}

func (m *memStore) ListLedgers(_ context.Context) ([]store.TeacherCommission, error) {
	var out []store.TeacherCommission
	for _, l := range m.ledgers {
		out = append(out, *l)
	}
	return out, nil
}

func (m *memStore) CreatePayout(_ context.Context, p *store.PayoutTransaction) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.payouts = append(m.payouts, p)
	return nil
}

func (m *memStore) ListPayouts(_ context.Context, teacherID *uuid.UUID, limit int) ([]store.PayoutTransaction, error) {
	var out []store.PayoutTransaction
	for _, p := range m.payouts {
		if teacherID == nil || p.TeacherID == *teacherID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(st Store, defaultRate string) Service {
	return New(st, config.CommissionConfig{DefaultRatePercent: defaultRate}, nil, nil, testLogger())
}

// seedSale creates a course with a 30% assignment override and a completed
// 1000.00 payment for it. Returns the payment and course teacher ids.
func seedSale(m *memStore) (paymentID, teacherID uuid.UUID) {
	teacherID = uuid.New()
	courseID := uuid.New()
	paymentID = uuid.New()
	rate := d("30")

	m.courses[courseID] = &store.Course{
		Base:      store.Base{ID: courseID},
		Title:     "Hindustani Vocals 101",
		TeacherID: teacherID,
		Price:     d("1000.00"),
	}
	m.assignments[assignKey(courseID, teacherID)] = &store.CourseAssignment{
		Base:                 store.Base{ID: uuid.New()},
		CourseID:             courseID,
		TeacherID:            teacherID,
		Status:               store.AssignmentAccepted,
		CommissionPercentage: &rate,
	}
	now := time.Now()
	m.payments[paymentID] = &store.Payment{
		Base:        store.Base{ID: paymentID},
		UserID:      uuid.New(),
		CourseID:    courseID,
		Amount:      d("1000.00"),
		Status:      store.PaymentCompleted,
		CompletedAt: &now,
	}
	return paymentID, teacherID
}

func addCouponUsage(m *memStore, paymentID uuid.UUID, coupon *store.Coupon, discount string) *store.CouponUsage {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	m.coupons[coupon.ID] = coupon
	u := &store.CouponUsage{
		Base:           store.Base{ID: uuid.New()},
		CouponID:       coupon.ID,
		PaymentID:      paymentID,
		UserID:         uuid.New(),
		OriginalAmount: d("1050.00"),
		DiscountAmount: d(discount),
		FinalAmount:    d("1000.00"),
	}
	m.usages[paymentID] = u
	return u
}

// --- tests ---

func TestRecordCommissionNormal(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("RecordCommission() error: %v", err)
	}

	rec := m.records[paymentID]
	if rec == nil {
		t.Fatal("no commission record created")
	}
	if rec.Scenario != ScenarioNormal {
		t.Errorf("scenario = %s, want %s", rec.Scenario, ScenarioNormal)
	}
	if !rec.PlatformCommission.Equal(d("292.92")) {
		t.Errorf("platform = %s, want 292.92", rec.PlatformCommission)
	}
	if !rec.TeacherRevenue.Equal(d("683.48")) {
		t.Errorf("teacher = %s, want 683.48", rec.TeacherRevenue)
	}

	// fee breakdown frozen on the payment
	p := m.payments[paymentID]
	if p.NetAmount == nil || !p.NetAmount.Equal(d("976.40")) {
		t.Errorf("payment net = %v, want 976.40", p.NetAmount)
	}

	ledger := m.ledgers[teacherID]
	if ledger == nil || !ledger.TotalEarned.Equal(d("683.48")) {
		t.Errorf("ledger earned = %v, want 683.48", ledger)
	}
}

func TestRecordCommissionIsIdempotent(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	svc := newService(m, "")

	for i := 0; i < 3; i++ {
		if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}

	if len(m.records) != 1 {
		t.Errorf("records = %d, want 1", len(m.records))
	}
	if !m.ledgers[teacherID].TotalEarned.Equal(d("683.48")) {
		t.Errorf("ledger earned = %s, want 683.48 (credited once)", m.ledgers[teacherID].TotalEarned)
	}
}

func TestRecordCommissionTeacherCoupon(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	addCouponUsage(m, paymentID, &store.Coupon{
		Code:        "GURU50",
		CreatorType: store.CreatorTeacher,
		CreatedByID: teacherID,
	}, "50.00")
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("RecordCommission() error: %v", err)
	}

	rec := m.records[paymentID]
	if rec.Scenario != ScenarioTeacherCoupon {
		t.Errorf("scenario = %s, want %s", rec.Scenario, ScenarioTeacherCoupon)
	}
	if !rec.PlatformCommission.Equal(d("292.92")) {
		t.Errorf("platform = %s, want 292.92", rec.PlatformCommission)
	}
	if !rec.ExtraCommission.Equal(d("50.00")) {
		t.Errorf("extra = %s, want 50.00", rec.ExtraCommission)
	}
	if rec.ExtraRecipientID == nil || *rec.ExtraRecipientID != teacherID {
		t.Errorf("extra recipient = %v, want course teacher", rec.ExtraRecipientID)
	}

	// teacher earns revenue plus the discount back: 683.48 + 50.00
	if !m.ledgers[teacherID].TotalEarned.Equal(d("733.48")) {
		t.Errorf("ledger earned = %s, want 733.48", m.ledgers[teacherID].TotalEarned)
	}

	usage := m.usages[paymentID]
	if usage.ExtraCommissionEarned == nil || !usage.ExtraCommissionEarned.Equal(d("50.00")) {
		t.Errorf("usage extra = %v, want 50.00", usage.ExtraCommissionEarned)
	}
}

func TestRecordCommissionPlatformCoupon(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	addCouponUsage(m, paymentID, &store.Coupon{
		Code:        "WELCOME50",
		CreatorType: store.CreatorPlatformAdmin,
		CreatedByID: uuid.New(),
	}, "50.00")
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("RecordCommission() error: %v", err)
	}

	rec := m.records[paymentID]
	if rec.Scenario != ScenarioPlatformCoupon {
		t.Errorf("scenario = %s, want %s", rec.Scenario, ScenarioPlatformCoupon)
	}
	if !rec.PlatformCommission.Equal(d("292.92")) {
		t.Errorf("platform = %s, want 292.92", rec.PlatformCommission)
	}
	if !rec.ExtraCommission.Equal(d("50.00")) {
		t.Errorf("extra = %s, want 50.00 (platform-funded discount)", rec.ExtraCommission)
	}
	if rec.ExtraRecipientID != nil {
		t.Errorf("extra recipient = %v, want nil", rec.ExtraRecipientID)
	}
	if !m.ledgers[teacherID].TotalEarned.Equal(d("683.48")) {
		t.Errorf("ledger earned = %s, want 683.48", m.ledgers[teacherID].TotalEarned)
	}

	// The redemption row records the accounted discount with no
	// beneficiary; nobody's ledger receives it.
	usage := m.usages[paymentID]
	if usage.ExtraCommissionEarned == nil || !usage.ExtraCommissionEarned.Equal(d("50.00")) {
		t.Errorf("usage extra = %v, want 50.00", usage.ExtraCommissionEarned)
	}
	if usage.CommissionRecipientID != nil {
		t.Errorf("usage recipient = %v, want nil", usage.CommissionRecipientID)
	}
	for id, ledger := range m.ledgers {
		if id != teacherID && ledger.TotalEarned.IsPositive() {
			t.Errorf("unexpected ledger credit for %s: %s", id, ledger.TotalEarned)
		}
	}
}

func TestRecordCommissionAssignedPlatformCoupon(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	beneficiary := uuid.New()
	addCouponUsage(m, paymentID, &store.Coupon{
		Code:              "PROMO50",
		CreatorType:       store.CreatorPlatformAdmin,
		CreatedByID:       uuid.New(),
		AssignedTeacherID: &beneficiary,
	}, "50.00")
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("RecordCommission() error: %v", err)
	}

	rec := m.records[paymentID]
	if rec.Scenario != ScenarioTeacherCoupon {
		t.Errorf("scenario = %s, want %s", rec.Scenario, ScenarioTeacherCoupon)
	}
	if rec.ExtraRecipientID == nil || *rec.ExtraRecipientID != beneficiary {
		t.Errorf("extra recipient = %v, want assigned teacher", rec.ExtraRecipientID)
	}

	// course teacher gets revenue, assigned teacher gets the discount
	if !m.ledgers[teacherID].TotalEarned.Equal(d("683.48")) {
		t.Errorf("course teacher earned = %s, want 683.48", m.ledgers[teacherID].TotalEarned)
	}
	if !m.ledgers[beneficiary].TotalEarned.Equal(d("50.00")) {
		t.Errorf("beneficiary earned = %s, want 50.00", m.ledgers[beneficiary].TotalEarned)
	}
}

func TestRecordCommissionAmbiguousCreatorFallsBackToNormal(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	addCouponUsage(m, paymentID, &store.Coupon{
		Code:        "LEGACY",
		CreatorType: "superuser",
		CreatedByID: uuid.New(),
	}, "50.00")
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("RecordCommission() error: %v", err)
	}

	rec := m.records[paymentID]
	if rec.Scenario != ScenarioNormal {
		t.Errorf("scenario = %s, want %s", rec.Scenario, ScenarioNormal)
	}
	if !rec.ExtraCommission.IsZero() {
		t.Errorf("extra = %s, want 0", rec.ExtraCommission)
	}
	if !m.ledgers[teacherID].TotalEarned.Equal(d("683.48")) {
		t.Errorf("ledger earned = %s, want 683.48", m.ledgers[teacherID].TotalEarned)
	}
}

func TestRecordCommissionGuards(t *testing.T) {
	m := newMemStore()
	paymentID, _ := seedSale(m)
	m.payments[paymentID].Status = store.PaymentPending
	svc := newService(m, "")

	if err := svc.RecordCommission(context.Background(), paymentID); !errors.Is(err, ErrPaymentNotCompleted) {
		t.Errorf("pending payment: error = %v, want ErrPaymentNotCompleted", err)
	}
	if err := svc.RecordCommission(context.Background(), uuid.New()); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("unknown payment: error = %v, want ErrPaymentNotFound", err)
	}
}

func TestResolveCommissionRateFallbackChain(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	courseID := m.payments[paymentID].CourseID

	// override wins
	svc := newService(m, "25")
	rate, err := svc.ResolveCommissionRate(context.Background(), courseID, teacherID)
	if err != nil || !rate.Equal(d("30")) {
		t.Errorf("override: rate = %s, err = %v, want 30", rate, err)
	}

	// no override: configured default
	delete(m.assignments, assignKey(courseID, teacherID))
	rate, err = svc.ResolveCommissionRate(context.Background(), courseID, teacherID)
	if err != nil || !rate.Equal(d("25")) {
		t.Errorf("default: rate = %s, err = %v, want 25", rate, err)
	}

	// nothing configured: zero
	svc = newService(m, "")
	rate, err = svc.ResolveCommissionRate(context.Background(), courseID, teacherID)
	if err != nil || !rate.IsZero() {
		t.Errorf("unconfigured: rate = %s, err = %v, want 0", rate, err)
	}

	// malformed default is an error, never silently zero
	svc = newService(m, "thirty")
	if _, err := svc.ResolveCommissionRate(context.Background(), courseID, teacherID); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("malformed default: error = %v, want ErrInvalidRate", err)
	}

	// malformed rate aborts recording entirely
	if err := svc.RecordCommission(context.Background(), paymentID); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("record with malformed rate: error = %v, want ErrInvalidRate", err)
	}
	if len(m.records) != 0 {
		t.Errorf("records = %d, want 0 after failed recording", len(m.records))
	}
}

func TestProcessPayout(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	svc := newService(m, "")
	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("seed recording: %v", err)
	}
	admin := uuid.New()

	// payout of exactly the balance succeeds
	payout, err := svc.ProcessPayout(context.Background(), PayoutInput{
		TeacherID:     teacherID,
		Amount:        d("683.48"),
		ProcessedByID: admin,
	})
	if err != nil {
		t.Fatalf("ProcessPayout() error: %v", err)
	}
	if payout.Status != store.PayoutCompleted {
		t.Errorf("status = %s, want %s", payout.Status, store.PayoutCompleted)
	}
	if !m.ledgers[teacherID].RemainingBalance().IsZero() {
		t.Errorf("balance = %s, want 0", m.ledgers[teacherID].RemainingBalance())
	}

	// one more cent fails
	_, err = svc.ProcessPayout(context.Background(), PayoutInput{
		TeacherID:     teacherID,
		Amount:        d("0.01"),
		ProcessedByID: admin,
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraw: error = %v, want ErrInsufficientBalance", err)
	}

	// invalid amounts
	for _, amount := range []string{"0", "-10"} {
		_, err := svc.ProcessPayout(context.Background(), PayoutInput{
			TeacherID:     teacherID,
			Amount:        d(amount),
			ProcessedByID: admin,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %s: error = %v, want ErrInvalidAmount", amount, err)
		}
	}

	// teacher without a ledger
	_, err = svc.ProcessPayout(context.Background(), PayoutInput{
		TeacherID:     uuid.New(),
		Amount:        d("10.00"),
		ProcessedByID: admin,
	})
	if !errors.Is(err, ErrLedgerNotFound) {
		t.Errorf("unknown teacher: error = %v, want ErrLedgerNotFound", err)
	}
}

func TestBalanceForTeacherWithoutSales(t *testing.T) {
	svc := newService(newMemStore(), "")

	ledger, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if !ledger.TotalEarned.IsZero() || !ledger.TotalPaid.IsZero() || !ledger.RemainingBalance().IsZero() {
		t.Errorf("expected zero ledger, got earned=%s paid=%s", ledger.TotalEarned, ledger.TotalPaid)
	}
}

func TestReconcile(t *testing.T) {
	m := newMemStore()
	paymentID, teacherID := seedSale(m)
	svc := newService(m, "")
	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("seed recording: %v", err)
	}

	// tamper with the ledger to create drift
	m.ledgers[teacherID].TotalEarned = d("9999.99")

	report, err := svc.Reconcile(context.Background(), ReconcileOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Reconcile(dry) error: %v", err)
	}
	if report.DriftCount != 1 {
		t.Fatalf("drift count = %d, want 1", report.DriftCount)
	}
	if !m.ledgers[teacherID].TotalEarned.Equal(d("9999.99")) {
		t.Error("dry run must not modify the ledger")
	}

	report, err = svc.Reconcile(context.Background(), ReconcileOptions{})
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if report.DriftCount != 1 || !report.Entries[0].Fixed {
		t.Errorf("expected fixed drift entry, got %+v", report.Entries)
	}
	if !m.ledgers[teacherID].TotalEarned.Equal(d("683.48")) {
		t.Errorf("ledger earned = %s, want 683.48 after fix", m.ledgers[teacherID].TotalEarned)
	}
}

func TestExportEarningsCSV(t *testing.T) {
	m := newMemStore()
	paymentID, _ := seedSale(m)
	svc := newService(m, "")
	if err := svc.RecordCommission(context.Background(), paymentID); err != nil {
		t.Fatalf("seed recording: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.ExportEarningsCSV(context.Background(), &buf, time.Time{}, time.Time{}); err != nil {
		t.Fatalf("ExportEarningsCSV() error: %v", err)
	}

	out := buf.String()
	if out == "" {
		t.Fatal("empty CSV output")
	}
	lines := 0
	for _, c := range out {
		if c == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("csv lines = %d, want header plus one record", lines)
	}
}
