package router

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/api/http/handler"
	"github.com/dhwanilabs/dhwani_backend/internal/api/http/middleware"
	"github.com/dhwanilabs/dhwani_backend/internal/service/coupon"
	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
	"github.com/dhwanilabs/dhwani_backend/internal/service/payment"
	"github.com/dhwanilabs/dhwani_backend/pkg/reqctx"
)

// Module provides the Router to the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg        *config.Config
	Redis      *redis.Client
	PaymentSvc payment.Service
	CouponSvc  coupon.Service
	FinanceSvc finance.Service
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Initialize Middlewares
	authRequired := middleware.RequireAuth()
	teacherOnly := middleware.RequireRole(reqctx.RoleTeacher, reqctx.RoleAdmin)
	adminOnly := middleware.RequireRole(reqctx.RoleAdmin)

	// 3. Initialize Handlers
	paymentH := handler.NewPaymentHandler(r.p.PaymentSvc)
	couponH := handler.NewCouponHandler(r.p.CouponSvc)
	financeH := handler.NewFinanceHandler(r.p.FinanceSvc)

	api := app.Group("/api/v1")

	// 4. Delegate to sub-files
	r.registerPaymentRoutes(api, paymentH, authRequired)
	r.registerCouponRoutes(api, couponH, authRequired, teacherOnly, adminOnly)
	r.registerEarningsRoutes(api, financeH, teacherOnly)
	r.registerPayoutRoutes(api, financeH, adminOnly)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New())
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
