package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dhwanilabs/dhwani_backend/internal/api/http/handler"
)

func (r *Router) registerPayoutRoutes(
	api fiber.Router,
	fh *handler.FinanceHandler,
	adminOnly fiber.Handler,
) {
	payouts := api.Group("/payouts", adminOnly)
	payouts.Post("/", fh.ProcessPayout)
	payouts.Get("/", fh.ListPayouts)

	api.Get("/admin/earnings/export", fh.ExportEarnings, adminOnly)
}
