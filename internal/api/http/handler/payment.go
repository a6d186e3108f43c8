package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/dhwanilabs/dhwani_backend/internal/api/http/middleware"
	"github.com/dhwanilabs/dhwani_backend/internal/service/coupon"
	"github.com/dhwanilabs/dhwani_backend/internal/service/payment"
	"github.com/dhwanilabs/dhwani_backend/pkg/reqctx"
)

type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

func identityFromFiber(c fiber.Ctx) (*reqctx.Identity, bool) {
	return middleware.IdentityFromFiber(c)
}

func mapPaymentError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrPaymentNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, payment.ErrCourseNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, payment.ErrCourseUnpublished):
		return badRequest(c, err.Error())
	case errors.Is(err, payment.ErrSignatureMismatch):
		return badRequest(c, err.Error())
	case errors.Is(err, payment.ErrPaymentNotComplete):
		return badRequest(c, err.Error())
	case errors.Is(err, payment.ErrAlreadyRefunded):
		return conflict(c, err.Error())
	case errors.Is(err, payment.ErrNotOwner):
		return forbidden(c)
	case errors.Is(err, payment.ErrGatewayFailure):
		return internalError(c)
	case errors.Is(err, coupon.ErrCouponNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponNotYetValid),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponNotApplicable),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrPerUserLimitReached):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// POST /payments/initiate
func (h *PaymentHandler) Initiate(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		CourseID   string `json:"course_id"`
		CouponCode string `json:"coupon_code"`
		Email      string `json:"email"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	courseID, err := uuid.Parse(body.CourseID)
	if err != nil {
		return badRequest(c, "invalid course_id")
	}

	res, err := h.svc.Initiate(c.Context(), id.UserID, payment.InitiateInput{
		CourseID:   courseID,
		CouponCode: body.CouponCode,
		Email:      body.Email,
	})
	if err != nil {
		return mapPaymentError(c, err)
	}

	return created(c, res)
}

// POST /payments/verify
// Called by the frontend after Razorpay checkout succeeds.
func (h *PaymentHandler) Verify(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.OrderID == "" || body.PaymentID == "" || body.Signature == "" {
		return badRequest(c, "order id, payment id and signature are required")
	}

	p, err := h.svc.Verify(c.Context(), id.UserID, payment.VerifyInput{
		OrderID:   body.OrderID,
		PaymentID: body.PaymentID,
		Signature: body.Signature,
	})
	if err != nil {
		return mapPaymentError(c, err)
	}

	return ok(c, p)
}

// POST /payments/webhook
// Public: authenticated by the signature header, not by user.
func (h *PaymentHandler) Webhook(c fiber.Ctx) error {
	signature := c.Get("X-Razorpay-Signature")
	if signature == "" {
		return badRequest(c, "missing signature header")
	}

	if err := h.svc.HandleWebhook(c.Context(), c.Body(), signature); err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			return badRequest(c, err.Error())
		}
		// Non-2xx makes Razorpay redeliver; completion is idempotent.
		return mapPaymentError(c, err)
	}

	return ok(c, fiber.Map{"status": "processed"})
}

// POST /payments/:id/refund
func (h *PaymentHandler) Refund(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	paymentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payment id")
	}

	p, err := h.svc.RequestRefund(c.Context(), id.UserID, paymentID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return ok(c, p)
}

// GET /payments/mine
func (h *PaymentHandler) ListMine(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var q struct {
		Limit int `query:"limit"`
	}
	_ = c.Bind().Query(&q)

	payments, err := h.svc.ListMine(c.Context(), id.UserID, q.Limit)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return ok(c, payments)
}
