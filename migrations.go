package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Models lists the tables owned by the account core
func Models() []any {
	return []any{
		(*Account)(nil),
		(*ActivationToken)(nil),
		(*SessionRecord)(nil),
	}
}

// Migrate creates the account tables and indexes when missing
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrapf(err, "failed to create table for %T", model)
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*ActivationToken)(nil), "activation_tokens_account_id_idx", "account_id"},
		{(*SessionRecord)(nil), "sessions_account_id_idx", "account_id"},
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return errors.Wrapf(err, "failed to create index %s", idx.name)
		}
	}

	return nil
}
