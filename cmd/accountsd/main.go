package main

import (
	"flag"
	"os"

	"go.uber.org/fx"

	"github.com/goliatone/go-accounts/config"
)

func main() {
	path := flag.String("config", envOr("ACCOUNTS_CONFIG", "config/config.yaml"), "path to the yaml config file")
	flag.Parse()

	fx.New(
		fx.Supply(configPath(*path)),
		injectInfra(),
		injectRepo(),
		injectMail(),
		injectService(),
		injectDelivery(),
		fx.Invoke(
			startSessionJanitor,
			startServer,
		),
	).Run()
}

type configPath string

func newConfig(path configPath) (*config.Config, error) {
	return config.Load(string(path))
}

func injectInfra() fx.Option {
	return fx.Provide(
		newConfig,
		newZap,
		newLogger,
		newDB,
	)
}

func injectRepo() fx.Option {
	return fx.Provide(
		newRepositoryManager,
		newIdentityRepository,
	)
}

func injectMail() fx.Option {
	return fx.Provide(
		newMailSender,
		newMailQueue,
		newRenderer,
		newMailer,
	)
}

func injectService() fx.Option {
	return fx.Provide(
		newService,
		newLedger,
		newSocialService,
	)
}

func injectDelivery() fx.Option {
	return fx.Provide(
		newRouteAuthenticator,
		newFiberApp,
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
