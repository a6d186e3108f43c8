// Package payment owns the payment lifecycle: order creation against the
// gateway, completion on verified checkout or webhook, refunds, and the
// handoff to the commission engine. Completion is the only place in the
// codebase that triggers commission recording.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/service/coupon"
	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/crypto"
	razorpaypkg "github.com/dhwanilabs/dhwani_backend/pkg/razorpay"
	"github.com/dhwanilabs/dhwani_backend/pkg/util/codes"
)

// SubjectPaymentCompleted is the NATS subject prefix for completion events.
const SubjectPaymentCompleted = "dhwani.payment.completed"

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Initiate creates a pending payment and a gateway order for it,
	// applying an optional coupon. The discount is computed once here and
	// frozen into the redemption row.
	Initiate(ctx context.Context, userID uuid.UUID, in InitiateInput) (*InitiateResult, error)

	// Verify checks the checkout signature and completes the payment.
	Verify(ctx context.Context, userID uuid.UUID, in VerifyInput) (*store.Payment, error)

	// HandleWebhook processes a gateway webhook delivery. Deliveries are
	// at-least-once; completion is idempotent.
	HandleWebhook(ctx context.Context, body []byte, signature string) error

	// RequestRefund refunds a completed payment via the gateway and marks
	// it refunded.
	RequestRefund(ctx context.Context, userID, paymentID uuid.UUID) (*store.Payment, error)

	// ListMine returns the caller's payments, newest first.
	ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]store.Payment, error)
}

// InitiateInput describes a purchase attempt.
type InitiateInput struct {
	CourseID   uuid.UUID
	CouponCode string
	// Email is the checkout contact address; the receipt goes here.
	Email string
}

// InitiateResult carries what the frontend checkout needs.
type InitiateResult struct {
	Payment        *store.Payment  `json:"payment"`
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// VerifyInput is the signed triple returned by the checkout widget.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type paymentService struct {
	db      *gorm.DB
	rz      *razorpaypkg.Client
	coupons coupon.Service
	finance finance.Service
	nc      *nats.Conn
	cfg     *config.Config
	aesKey  []byte
	logger  *slog.Logger
}

func New(db *gorm.DB, rz *razorpaypkg.Client, coupons coupon.Service, fin finance.Service, nc *nats.Conn, cfg *config.Config, aesKey []byte, logger *slog.Logger) Service {
	return &paymentService{
		db:      db,
		rz:      rz,
		coupons: coupons,
		finance: fin,
		nc:      nc,
		cfg:     cfg,
		aesKey:  aesKey,
		logger:  logger,
	}
}

// ---------------------------------------------------------------------------
// Initiation
// ---------------------------------------------------------------------------

func (s *paymentService) Initiate(ctx context.Context, userID uuid.UUID, in InitiateInput) (*InitiateResult, error) {
	var course store.Course
	err := s.db.WithContext(ctx).First(&course, "id = ?", in.CourseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("load course: %w", err)
	}
	if !course.Published {
		return nil, ErrCourseUnpublished
	}

	amount := course.Price
	var quote *coupon.Quote
	if in.CouponCode != "" {
		quote, err = s.coupons.Validate(ctx, in.CouponCode, course.ID, userID, course.Price)
		if err != nil {
			return nil, err
		}
		amount = quote.FinalAmount
	}

	receipt, err := codes.GenerateReceiptToken()
	if err != nil {
		return nil, fmt.Errorf("generate receipt: %w", err)
	}

	p := &store.Payment{
		UserID:        userID,
		CourseID:      course.ID,
		Amount:        amount,
		Status:        store.PaymentPending,
		Receipt:       receipt,
		CustomerEmail: in.Email,
	}

	// The redemption row is created with the payment so the discount is
	// frozen before any money moves.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if quote != nil {
			usage := &store.CouponUsage{
				CouponID:       quote.Coupon.ID,
				PaymentID:      p.ID,
				UserID:         userID,
				OriginalAmount: quote.OriginalAmount,
				DiscountAmount: quote.DiscountAmount,
				FinalAmount:    quote.FinalAmount,
			}
			if err := tx.Create(usage).Error; err != nil {
				return fmt.Errorf("create coupon usage: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Amount in the currency's smallest unit (paise for INR).
	paise := amount.Mul(decimal.NewFromInt(100)).IntPart()
	order, err := s.rz.CreateOrder(ctx, paise, s.cfg.Razorpay.Currency, receipt, map[string]string{
		"payment_id": p.ID.String(),
		"course_id":  course.ID.String(),
	})
	if err != nil {
		_ = s.db.WithContext(ctx).Model(p).Update("status", store.PaymentFailed).Error
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if err := s.db.WithContext(ctx).Model(p).Update("razorpay_order_id", order.ID).Error; err != nil {
		return nil, fmt.Errorf("store order id: %w", err)
	}
	p.RazorpayOrderID = order.ID

	result := &InitiateResult{
		Payment:        p,
		OrderID:        order.ID,
		Amount:         amount,
		Currency:       s.cfg.Razorpay.Currency,
		KeyID:          s.cfg.Razorpay.KeyID,
		DiscountAmount: decimal.Zero,
	}
	if quote != nil {
		result.DiscountAmount = quote.DiscountAmount
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func (s *paymentService) Verify(ctx context.Context, userID uuid.UUID, in VerifyInput) (*store.Payment, error) {
	if err := s.rz.VerifyCheckoutSignature(in.OrderID, in.PaymentID, in.Signature); err != nil {
		s.logger.WarnContext(ctx, "checkout signature rejected",
			slog.String("order_id", in.OrderID),
			slog.String("user_id", userID.String()),
		)
		return nil, ErrSignatureMismatch
	}

	p, err := s.complete(ctx, in.OrderID, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotOwner
	}
	return p, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if err := s.rz.VerifyWebhookSignature(body, signature); err != nil {
		return ErrSignatureMismatch
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}

	if event.Event != "payment.captured" {
		s.logger.DebugContext(ctx, "ignoring webhook event", slog.String("event", event.Event))
		return nil
	}

	_, err := s.complete(ctx, event.Payload.Payment.Entity.OrderID, event.Payload.Payment.Entity.ID)
	return err
}

// complete marks a payment completed, freezes its fee breakdown, records
// the commission, and publishes the completion event. Idempotent: an
// already-completed payment is returned unchanged. This is the single
// call site of finance.RecordCommission.
func (s *paymentService) complete(ctx context.Context, orderID, gatewayPaymentID string) (*store.Payment, error) {
	var p store.Payment
	alreadyCompleted := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "razorpay_order_id = ?", orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("load payment: %w", err)
		}

		switch p.Status {
		case store.PaymentCompleted:
			alreadyCompleted = true
			return nil
		case store.PaymentRefunded:
			return ErrAlreadyRefunded
		}

		fees, err := finance.ComputeFees(p.Amount)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":              store.PaymentCompleted,
			"razorpay_payment_id": gatewayPaymentID,
			"gateway_fee":         fees.GatewayFee,
			"gateway_tax":         fees.GatewayTax,
			"net_amount":          fees.NetAmount,
			"completed_at":        now,
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		// The coupon counter moves here, not at initiation, so used_count
		// only ever counts redemptions that were actually paid for.
		var usage store.CouponUsage
		err = tx.First(&usage, "payment_id = ?", p.ID).Error
		switch {
		case err == nil:
			if err := tx.Model(&store.Coupon{}).
				Where("id = ?", usage.CouponID).
				Update("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return fmt.Errorf("increment coupon usage: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("load coupon usage: %w", err)
		}

		p.Status = store.PaymentCompleted
		p.RazorpayPaymentID = gatewayPaymentID
		p.GatewayFee, p.GatewayTax, p.NetAmount = &fees.GatewayFee, &fees.GatewayTax, &fees.NetAmount
		p.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyCompleted {
		return &p, nil
	}

	s.captureMethodDetails(ctx, &p)

	if err := s.finance.RecordCommission(ctx, p.ID); err != nil {
		// The payment stays completed; the webhook retry or the
		// reconcile command will pick the recording up again.
		s.logger.ErrorContext(ctx, "commission recording failed",
			slog.String("payment_id", p.ID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.publishCompletedEvent(&p)

	s.logger.InfoContext(ctx, "payment completed",
		slog.String("payment_id", p.ID.String()),
		slog.String("order_id", orderID),
		slog.String("amount", p.Amount.String()),
	)
	return &p, nil
}

// captureMethodDetails fetches the gateway payment entity and stores an
// encrypted snapshot of the method metadata. Best effort.
func (s *paymentService) captureMethodDetails(ctx context.Context, p *store.Payment) {
	if len(s.aesKey) != 32 || p.RazorpayPaymentID == "" {
		return
	}

	gw, err := s.rz.FetchPayment(ctx, p.RazorpayPaymentID)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch gateway payment failed",
			slog.String("payment_id", p.ID.String()), slog.Any("error", err))
		return
	}

	details := map[string]string{"method": gw.Method}
	switch gw.Method {
	case "card":
		if gw.Card != nil {
			details["last4"] = gw.Card.Last4
			details["network"] = gw.Card.Network
		}
	case "upi":
		details["vpa"] = gw.VPA
	case "netbanking":
		details["bank"] = gw.Bank
	}

	raw, err := json.Marshal(details)
	if err != nil {
		return
	}
	enc, err := crypto.Encrypt(s.aesKey, string(raw))
	if err != nil {
		s.logger.WarnContext(ctx, "encrypt method details failed",
			slog.String("payment_id", p.ID.String()), slog.Any("error", err))
		return
	}

	if err := s.db.WithContext(ctx).Model(p).Update("method_details", enc).Error; err != nil {
		s.logger.WarnContext(ctx, "store method details failed",
			slog.String("payment_id", p.ID.String()), slog.Any("error", err))
	}
}

func (s *paymentService) publishCompletedEvent(p *store.Payment) {
	if s.nc == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"payment_id": p.ID,
		"user_id":    p.UserID,
		"course_id":  p.CourseID,
		"amount":     p.Amount,
	})
	if err != nil {
		return
	}
	subject := SubjectPaymentCompleted + "." + p.ID.String()
	if err := s.nc.Publish(subject, payload); err != nil {
		s.logger.Warn("publish completion event failed",
			slog.String("subject", subject), slog.Any("error", err))
	}
}

// ---------------------------------------------------------------------------
// Refunds and queries
// ---------------------------------------------------------------------------

func (s *paymentService) RequestRefund(ctx context.Context, userID, paymentID uuid.UUID) (*store.Payment, error) {
	var p store.Payment
	err := s.db.WithContext(ctx).First(&p, "id = ?", paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}

	if p.UserID != userID {
		return nil, ErrNotOwner
	}
	switch p.Status {
	case store.PaymentRefunded:
		return nil, ErrAlreadyRefunded
	case store.PaymentCompleted:
		// refundable
	default:
		return nil, ErrPaymentNotComplete
	}

	if _, err := s.rz.Refund(ctx, p.RazorpayPaymentID, 0, map[string]string{
		"payment_id": p.ID.String(),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}

	if err := s.db.WithContext(ctx).Model(&p).Update("status", store.PaymentRefunded).Error; err != nil {
		return nil, fmt.Errorf("mark refunded: %w", err)
	}
	p.Status = store.PaymentRefunded

	// Commission stays recorded; clawback is a manual ledger operation.
	s.logger.WarnContext(ctx, "payment refunded, commission not reversed",
		slog.String("payment_id", p.ID.String()),
	)
	return &p, nil
}

func (s *paymentService) ListMine(ctx context.Context, userID uuid.UUID, limit int) ([]store.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var payments []store.Payment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
