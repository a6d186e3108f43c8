package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dhwanilabs/dhwani_backend/internal/api/http/handler"
)

func (r *Router) registerEarningsRoutes(
	api fiber.Router,
	fh *handler.FinanceHandler,
	teacherOnly fiber.Handler,
) {
	me := api.Group("/teachers/me", teacherOnly)
	me.Get("/balance", fh.MyBalance)
	me.Get("/earnings", fh.MyEarnings)
	me.Get("/payouts", fh.MyPayouts)
}
