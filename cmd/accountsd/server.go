package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/social"
)

func newRouteAuthenticator(svc *accounts.Service, cfg *config.Config, logger accounts.Logger) *accounts.RouteAuthenticator {
	auth := accounts.NewHTTPAuthenticator(svc.Sessions(), cfg)
	auth.Logger = logger
	return auth
}

func newFiberApp(
	cfg *config.Config,
	svc *accounts.Service,
	socialSvc *social.Service,
	auth *accounts.RouteAuthenticator,
	logger accounts.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		BodyLimit:             cfg.HTTP.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	group := app.Group("/accounts")

	accounts.NewHTTPController(svc, auth,
		accounts.WithControllerLogger(logger),
		accounts.WithControllerDebug(cfg.App.Debug),
		accounts.WithSettingsProvider(socialSvc.Ledger().Settings),
	).RegisterRoutes(group)

	social.NewHTTPController(socialSvc, auth, social.HTTPConfig{
		RecoveryURL: cfg.GetRecoveryURL(),
	}).RegisterRoutes(group)

	return app
}

func startServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger accounts.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("listening on %s", cfg.HTTP.Addr)
				if err := app.Listen(cfg.HTTP.Addr); err != nil {
					logger.Error("http server stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}
