package http

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"

	"github.com/dhwanilabs/dhwani_backend/config"
	"github.com/dhwanilabs/dhwani_backend/internal/api/http/router"
	"github.com/dhwanilabs/dhwani_backend/internal/app"
)

func Start(cfg *config.Config, timeout time.Duration) {
	fx.New(
		fx.Supply(cfg),
		app.InfraModule,
		app.ServiceModule,
		app.WorkerModule,
		router.Module,
		Module, // This is the http.Module from server.go

		// IMPORTANT: Invoke *fiber.App because that's what NewServer returns
		// This forces the creation of fiber.App, triggering the OnStart hook
		fx.Invoke(func(*fiber.App) {}),

		fx.StopTimeout(timeout),
	).Run()
}
