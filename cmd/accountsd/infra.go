package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/repository"
)

const startTimeout = 10 * time.Second

func newZap(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.Log.Level)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	logger = logger.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})

	return logger, nil
}

func newLogger(z *zap.Logger) accounts.Logger {
	return accounts.NewZapLogger(z)
}

func newDB(lc fx.Lifecycle, cfg *config.Config, logger accounts.Logger) (*bun.DB, error) {
	if cfg.Database.Driver != "sqlite" {
		return nil, errors.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, startTimeout)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping database")
			}
			if err := accounts.Migrate(ctx, db); err != nil {
				return err
			}
			if err := repository.MigrateSocialIdentities(ctx, db); err != nil {
				return err
			}
			logger.Info("database ready (%s)", cfg.Database.Driver)
			return nil
		},
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})

	return db, nil
}

func newRepositoryManager(db *bun.DB, cfg *config.Config) accounts.RepositoryManager {
	repo := accounts.NewRepositoryManager(db,
		accounts.WithAccountsHasher(accounts.NewBcryptHasher(cfg.Accounts.BcryptCost)),
		accounts.WithDeterministicIDs(cfg.Accounts.DeterministicIDs),
	)
	repo.MustValidate()
	return repo
}

func newIdentityRepository(db *bun.DB) *repository.SocialIdentityRepository {
	return repository.NewSocialIdentityRepository(db)
}
