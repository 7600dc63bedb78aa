package main

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/repository"
	"github.com/goliatone/go-accounts/social"
)

const sessionPurgeInterval = time.Hour

func newService(cfg *config.Config, repo accounts.RepositoryManager, mailer *accounts.Mailer, logger accounts.Logger, z *zap.Logger) *accounts.Service {
	return accounts.NewService(repo, cfg,
		accounts.WithServiceLogger(logger),
		accounts.WithServiceActivitySink(activitymap.NewZapSink(z.Named("activity"))),
		accounts.WithPasswordPolicy(cfg.StrengthPolicy()),
		accounts.WithNotifier(mailer),
		accounts.WithServiceDebug(cfg.App.Debug),
	)
}

func newLedger(repo accounts.RepositoryManager, identities *repository.SocialIdentityRepository) *social.Ledger {
	return social.NewLedger(repo, identities)
}

func newSocialService(svc *accounts.Service, ledger *social.Ledger) *social.Service {
	return social.NewService(svc, ledger)
}

// startSessionJanitor deletes expired session rows in the background
func startSessionJanitor(lc fx.Lifecycle, svc *accounts.Service, logger accounts.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(sessionPurgeInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						n, err := svc.Sessions().PurgeExpired(ctx)
						if err != nil {
							logger.Warn("session purge failed: %v", err)
							continue
						}
						if n > 0 {
							logger.Info("purged %d expired sessions", n)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
