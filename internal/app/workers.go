package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
	"github.com/dhwanilabs/dhwani_backend/internal/service/payment"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/email"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc     fx.Lifecycle
	NC     *nats.Conn
	DB     *gorm.DB
	Emails *email.Client
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			startReceiptWorker(p.NC, p.DB, p.Emails)
			startPayoutEmailWorker(p.NC, p.DB, p.Emails)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Drain handled by ProvideNatsClient
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// receipt_worker
// ---------------------------------------------------------------------------

// Receipt and payout emails ride on events so a mail outage never touches
// the money path. Workers read state, they never write it.

func startReceiptWorker(nc *nats.Conn, db *gorm.DB, emails *email.Client) {
	_, err := nc.Subscribe(payment.SubjectPaymentCompleted+".*", func(msg *nats.Msg) {
		var evt struct {
			PaymentID uuid.UUID `json:"payment_id"`
		}
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			slog.Warn("receipt_worker: bad event payload", "err", err)
			return
		}

		ctx := context.Background()

		var p store.Payment
		err := db.WithContext(ctx).Preload("Course").
			First(&p, "id = ?", evt.PaymentID).Error
		if err != nil {
			slog.Warn("receipt_worker: payment not found", "id", evt.PaymentID, "err", err)
			return
		}

		if p.CustomerEmail == "" {
			slog.Debug("receipt_worker: no customer email on payment", "id", p.ID)
			return
		}

		gross := p.Amount
		discount := decimal.Zero
		var usage store.CouponUsage
		err = db.WithContext(ctx).First(&usage, "payment_id = ?", p.ID).Error
		if err == nil {
			gross = usage.OriginalAmount
			discount = usage.DiscountAmount
		}

		courseTitle := ""
		if p.Course != nil {
			courseTitle = p.Course.Title
		}
		paidAt := time.Now()
		if p.CompletedAt != nil {
			paidAt = *p.CompletedAt
		}

		m := email.BuildPaymentReceiptEmail(email.ReceiptEmailData{
			Email:       p.CustomerEmail,
			CourseTitle: courseTitle,
			OrderID:     p.RazorpayOrderID,
			GrossAmount: gross.StringFixed(2),
			Discount:    discount.StringFixed(2),
			PaidAmount:  p.Amount.StringFixed(2),
			PaidAt:      paidAt.Format("02 Jan 2006 15:04"),
		})
		if err := emails.Send(ctx, m); err != nil {
			slog.Warn("receipt_worker: send failed", "payment_id", p.ID, "err", err)
		}
	})
	if err != nil {
		slog.Error("receipt_worker: subscribe failed", "err", err)
	}

	slog.Info("receipt_worker: started")
}

// ---------------------------------------------------------------------------
// payout_email_worker
// ---------------------------------------------------------------------------

func startPayoutEmailWorker(nc *nats.Conn, db *gorm.DB, emails *email.Client) {
	_, err := nc.Subscribe(finance.SubjectPayoutProcessed+".*", func(msg *nats.Msg) {
		var evt struct {
			PayoutID    uuid.UUID `json:"payout_id"`
			TeacherID   uuid.UUID `json:"teacher_id"`
			NotifyEmail string    `json:"notify_email"`
		}
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			slog.Warn("payout_email_worker: bad event payload", "err", err)
			return
		}
		if evt.NotifyEmail == "" {
			return
		}

		ctx := context.Background()

		var payout store.PayoutTransaction
		err := db.WithContext(ctx).First(&payout, "id = ?", evt.PayoutID).Error
		if err != nil {
			slog.Warn("payout_email_worker: payout not found", "id", evt.PayoutID, "err", err)
			return
		}

		remaining := decimal.Zero
		var ledger store.TeacherCommission
		err = db.WithContext(ctx).First(&ledger, "teacher_id = ?", evt.TeacherID).Error
		if err == nil {
			remaining = ledger.RemainingBalance()
		}

		processedAt := time.Now()
		if payout.ProcessedAt != nil {
			processedAt = *payout.ProcessedAt
		}

		m := email.BuildPayoutProcessedEmail(email.PayoutEmailData{
			Email:            evt.NotifyEmail,
			Amount:           payout.Amount.StringFixed(2),
			RemainingBalance: remaining.StringFixed(2),
			ProcessedAt:      processedAt.Format("02 Jan 2006 15:04"),
			Notes:            payout.Notes,
		})
		if err := emails.Send(ctx, m); err != nil {
			slog.Warn("payout_email_worker: send failed", "payout_id", payout.ID, "err", err)
		}
	})
	if err != nil {
		slog.Error("payout_email_worker: subscribe failed", "err", err)
	}

	slog.Info("payout_email_worker: started")
}
