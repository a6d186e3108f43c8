package handler

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
)

type FinanceHandler struct {
	svc finance.Service
}

func NewFinanceHandler(svc finance.Service) *FinanceHandler {
	return &FinanceHandler{svc: svc}
}

func mapFinanceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, finance.ErrInsufficientBalance):
		return badRequest(c, err.Error())
	case errors.Is(err, finance.ErrInvalidAmount):
		return badRequest(c, err.Error())
	case errors.Is(err, finance.ErrInvalidRate):
		return badRequest(c, err.Error())
	case errors.Is(err, finance.ErrLedgerNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, finance.ErrPaymentNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, finance.ErrCourseNotFound):
		return notFound(c, err.Error())
	default:
		return internalError(c)
	}
}

// GET /teachers/me/balance
func (h *FinanceHandler) MyBalance(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	ledger, err := h.svc.Balance(c.Context(), id.UserID)
	if err != nil {
		return mapFinanceError(c, err)
	}

	return ok(c, fiber.Map{
		"total_earned":      ledger.TotalEarned,
		"total_paid":        ledger.TotalPaid,
		"remaining_balance": ledger.RemainingBalance(),
		"last_payout_at":    ledger.LastPayoutAt,
	})
}

// GET /teachers/me/earnings
func (h *FinanceHandler) MyEarnings(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	summary, err := h.svc.Earnings(c.Context(), id.UserID)
	if err != nil {
		return mapFinanceError(c, err)
	}

	return ok(c, summary)
}

// GET /teachers/me/payouts
func (h *FinanceHandler) MyPayouts(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var q struct {
		Limit int `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	payouts, err := h.svc.ListPayouts(c.Context(), &id.UserID, q.Limit)
	if err != nil {
		return mapFinanceError(c, err)
	}

	return ok(c, payouts)
}

// POST /payouts (admin)
func (h *FinanceHandler) ProcessPayout(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		TeacherID     string `json:"teacher_id"`
		Amount        string `json:"amount"`
		BankReference string `json:"bank_reference"`
		Notes         string `json:"notes"`
		NotifyEmail   string `json:"notify_email"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	teacherID, err := uuid.Parse(body.TeacherID)
	if err != nil {
		return badRequest(c, "invalid teacher_id")
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}

	payout, err := h.svc.ProcessPayout(c.Context(), finance.PayoutInput{
		TeacherID:     teacherID,
		Amount:        amount,
		ProcessedByID: id.UserID,
		BankReference: body.BankReference,
		Notes:         body.Notes,
		NotifyEmail:   body.NotifyEmail,
	})
	if err != nil {
		return mapFinanceError(c, err)
	}

	return created(c, payout)
}

// GET /payouts (admin)
func (h *FinanceHandler) ListPayouts(c fiber.Ctx) error {
	var q struct {
		TeacherID string `query:"teacher_id"`
		Limit     int    `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	var teacherID *uuid.UUID
	if q.TeacherID != "" {
		id, err := uuid.Parse(q.TeacherID)
		if err != nil {
			return badRequest(c, "invalid teacher_id")
		}
		teacherID = &id
	}

	payouts, err := h.svc.ListPayouts(c.Context(), teacherID, q.Limit)
	if err != nil {
		return mapFinanceError(c, err)
	}

	return ok(c, payouts)
}

// GET /admin/earnings/export?from=2026-01-01&to=2026-02-01
func (h *FinanceHandler) ExportEarnings(c fiber.Ctx) error {
	var q struct {
		From string `query:"from"`
		To   string `query:"to"`
	}
	_ = c.Bind().Query(&q)

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	if q.From != "" {
		t, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return badRequest(c, "invalid from date, expected YYYY-MM-DD")
		}
		from = t
	}
	if q.To != "" {
		t, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return badRequest(c, "invalid to date, expected YYYY-MM-DD")
		}
		to = t
	}
	if !from.Before(to) {
		return badRequest(c, "from must be before to")
	}

	var buf bytes.Buffer
	if err := h.svc.ExportEarningsCSV(c.Context(), &buf, from, to); err != nil {
		return mapFinanceError(c, err)
	}

	filename := fmt.Sprintf("earnings_%s_%s.csv", from.Format("20060102"), to.Format("20060102"))
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}
