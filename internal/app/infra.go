package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/store"
	"github.com/dhwanilabs/dhwani_backend/pkg/crypto"
	"github.com/dhwanilabs/dhwani_backend/pkg/database"
	"github.com/dhwanilabs/dhwani_backend/pkg/email"
	"github.com/dhwanilabs/dhwani_backend/pkg/observability"
	razorpaypkg "github.com/dhwanilabs/dhwani_backend/pkg/razorpay"
	redispkg "github.com/dhwanilabs/dhwani_backend/pkg/redis"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideGormDB),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideRazorpayClient),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideEncryptionKey),
	fx.Provide(ProvideLogger),
)

func ProvideGormDB(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGormDB(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func ProvideStore(db *gorm.DB) *store.Store {
	return store.New(db)
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.ShutdownSave(ctx).Err()
		},
	})
	return rdb, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideRazorpayClient(cfg *config.Config) *razorpaypkg.Client {
	return razorpaypkg.New(cfg.Razorpay)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Nats.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

// ProvideEncryptionKey decodes the AES key used for payment method
// metadata and payout bank references.
func ProvideEncryptionKey(cfg *config.Config) ([]byte, error) {
	if cfg.Encryption.Key == "" {
		return nil, nil
	}
	return crypto.KeyFromHex(cfg.Encryption.Key)
}

func ProvideLogger() *slog.Logger {
	return slog.Default()
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.Tracing.OTLPInsecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
