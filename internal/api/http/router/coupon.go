package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dhwanilabs/dhwani_backend/internal/api/http/handler"
)

func (r *Router) registerCouponRoutes(
	api fiber.Router,
	ch *handler.CouponHandler,
	authRequired fiber.Handler,
	teacherOnly fiber.Handler,
	adminOnly fiber.Handler,
) {
	coupons := api.Group("/coupons")
	coupons.Post("/validate", ch.Validate, authRequired)
	coupons.Post("/", ch.Create, teacherOnly)
	coupons.Get("/stats", ch.TeacherStats, teacherOnly)
	coupons.Delete("/:id", ch.Deactivate, adminOnly)
}
