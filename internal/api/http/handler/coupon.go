package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dhwanilabs/dhwani_backend/internal/service/coupon"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/reqctx"
)

type CouponHandler struct {
	svc coupon.Service
}

func NewCouponHandler(svc coupon.Service) *CouponHandler {
	return &CouponHandler{svc: svc}
}

func mapCouponError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, coupon.ErrCouponNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, coupon.ErrCourseNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponNotYetValid),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponNotApplicable),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrPerUserLimitReached),
		errors.Is(err, coupon.ErrInvalidDiscount):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// POST /coupons/validate
func (h *CouponHandler) Validate(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		Code     string `json:"code"`
		CourseID string `json:"course_id"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Code == "" {
		return badRequest(c, "code is required")
	}

	courseID, err := uuid.Parse(body.CourseID)
	if err != nil {
		return badRequest(c, "invalid course_id")
	}

	quote, err := h.svc.QuoteForCourse(c.Context(), body.Code, courseID, id.UserID)
	if err != nil {
		return mapCouponError(c, err)
	}

	return ok(c, quote)
}

// POST /coupons
// Admins create platform coupons; teachers create their own.
func (h *CouponHandler) Create(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	var body struct {
		Code              string  `json:"code"`
		DiscountType      string  `json:"discount_type"`
		DiscountValue     string  `json:"discount_value"`
		MaxDiscountAmount *string `json:"max_discount_amount"`
		CourseID          *string `json:"course_id"`
		AssignedTeacherID *string `json:"assigned_teacher_id"`
		ValidFrom         *string `json:"valid_from"`
		ValidUntil        *string `json:"valid_until"`
		UsageLimit        *int    `json:"usage_limit"`
		PerUserLimit      *int    `json:"per_user_limit"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	value, err := decimal.NewFromString(body.DiscountValue)
	if err != nil {
		return badRequest(c, "invalid discount_value")
	}

	in := coupon.CreateInput{
		Code:          body.Code,
		DiscountType:  body.DiscountType,
		DiscountValue: value,
		CreatedByID:   id.UserID,
	}

	switch id.Role {
	case reqctx.RoleAdmin:
		in.CreatorType = store.CreatorPlatformAdmin
	case reqctx.RoleTeacher:
		in.CreatorType = store.CreatorTeacher
	default:
		return forbidden(c)
	}

	if body.MaxDiscountAmount != nil {
		maxAmt, err := decimal.NewFromString(*body.MaxDiscountAmount)
		if err != nil {
			return badRequest(c, "invalid max_discount_amount")
		}
		in.MaxDiscountAmount = &maxAmt
	}
	if body.CourseID != nil {
		courseID, err := uuid.Parse(*body.CourseID)
		if err != nil {
			return badRequest(c, "invalid course_id")
		}
		in.CourseID = &courseID
	}
	if body.AssignedTeacherID != nil {
		if id.Role != reqctx.RoleAdmin {
			return forbidden(c)
		}
		teacherID, err := uuid.Parse(*body.AssignedTeacherID)
		if err != nil {
			return badRequest(c, "invalid assigned_teacher_id")
		}
		in.AssignedTeacherID = &teacherID
	}
	if body.ValidFrom != nil {
		t, err := time.Parse(time.RFC3339, *body.ValidFrom)
		if err != nil {
			return badRequest(c, "invalid valid_from")
		}
		in.ValidFrom = t
	}
	if body.ValidUntil != nil {
		t, err := time.Parse(time.RFC3339, *body.ValidUntil)
		if err != nil {
			return badRequest(c, "invalid valid_until")
		}
		in.ValidUntil = t
	}
	in.UsageLimit = body.UsageLimit
	in.PerUserLimit = body.PerUserLimit

	cpn, err := h.svc.Create(c.Context(), in)
	if err != nil {
		return mapCouponError(c, err)
	}

	return created(c, cpn)
}

// DELETE /coupons/:id
func (h *CouponHandler) Deactivate(c fiber.Ctx) error {
	couponID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid coupon id")
	}

	if err := h.svc.Deactivate(c.Context(), couponID); err != nil {
		return mapCouponError(c, err)
	}

	return noContent(c)
}

// GET /coupons/stats
func (h *CouponHandler) TeacherStats(c fiber.Ctx) error {
	id, found := identityFromFiber(c)
	if !found {
		return unauthorized(c)
	}

	stats, err := h.svc.TeacherStats(c.Context(), id.UserID)
	if err != nil {
		return mapCouponError(c, err)
	}

	return ok(c, stats)
}
