package router

import (
	"github.com/gofiber/fiber/v3"

	"github.com/dhwanilabs/dhwani_backend/internal/api/http/handler"
)

func (r *Router) registerPaymentRoutes(
	api fiber.Router,
	ph *handler.PaymentHandler,
	authRequired fiber.Handler,
) {
	// Public: Razorpay webhook (authenticated by its signature header)
	api.Post("/payments/webhook", ph.Webhook)

	payments := api.Group("/payments", authRequired)
	payments.Post("/initiate", ph.Initiate)
	payments.Post("/verify", ph.Verify)
	payments.Get("/mine", ph.ListMine)
	payments.Post("/:id/refund", ph.Refund)
}
