package app

import (
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/service/coupon"
	"github.com/dhwanilabs/dhwani_backend/internal/service/finance"
	"github.com/dhwanilabs/dhwani_backend/internal/service/payment"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	razorpaypkg "github.com/dhwanilabs/dhwani_backend/pkg/razorpay"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideCouponService,
		ProvideFinanceService,
		ProvidePaymentService,
	),
)

func ProvideCouponService(st *store.Store, logger *slog.Logger) coupon.Service {
	return coupon.New(st, logger)
}

func ProvideFinanceService(
	st *store.Store,
	cfg *config.Config,
	aesKey []byte,
	nc *nats.Conn,
	logger *slog.Logger,
) finance.Service {
	return finance.New(finance.NewStore(st), cfg.Commission, aesKey, nc, logger)
}

func ProvidePaymentService(
	db *gorm.DB,
	rz *razorpaypkg.Client,
	coupons coupon.Service,
	fin finance.Service,
	nc *nats.Conn,
	cfg *config.Config,
	aesKey []byte,
	logger *slog.Logger,
) payment.Service {
	return payment.New(db, rz, coupons, fin, nc, cfg, aesKey, logger)
}
