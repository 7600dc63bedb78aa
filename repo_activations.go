package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ActivationTokens persists activation codes
type ActivationTokens interface {
	CreateTx(ctx context.Context, tx bun.IDB, token *ActivationToken) (*ActivationToken, error)
	FindByCodeTx(ctx context.Context, tx bun.IDB, code string) (*ActivationToken, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ActivationToken, error)
	DeleteByCodeTx(ctx context.Context, tx bun.IDB, code string) (bool, error)
	DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error
}

// ErrActivationTokenNotFound no activation row matches the code
var ErrActivationTokenNotFound = errors.New("activation token not found")

type activationTokens struct {
	repository.Repository[*ActivationToken]
}

// NewActivationTokensRepository returns a bun backed activation token store.
// Codes are uuids, a token created without one gets a fresh code.
func NewActivationTokensRepository(db *bun.DB) ActivationTokens {
	return &activationTokens{
		Repository: repository.NewRepository[*ActivationToken](db, repository.ModelHandlers[*ActivationToken]{
			NewRecord: func() *ActivationToken { return &ActivationToken{} },
			GetID: func(t *ActivationToken) uuid.UUID {
				if t == nil {
					return uuid.Nil
				}
				id, err := uuid.Parse(t.Code)
				if err != nil {
					return uuid.Nil
				}
				return id
			},
			SetID: func(t *ActivationToken, id uuid.UUID) {
				if t != nil {
					t.Code = id.String()
				}
			},
			GetIdentifier: func() string {
				return "code"
			},
		}),
	}
}

func (r *activationTokens) CreateTx(ctx context.Context, tx bun.IDB, token *ActivationToken) (*ActivationToken, error) {
	if token == nil {
		return nil, errors.New("activation token is nil")
	}
	created, err := r.Repository.CreateTx(ctx, tx, token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert activation token")
	}
	return created, nil
}

func (r *activationTokens) FindByCodeTx(ctx context.Context, tx bun.IDB, code string) (*ActivationToken, error) {
	record, err := r.Repository.GetTx(ctx, tx, repository.SelectBy("code", "=", code))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrActivationTokenNotFound
		}
		return nil, errors.Wrap(err, "failed to find activation token")
	}
	return record, nil
}

func (r *activationTokens) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ActivationToken, error) {
	records, _, err := r.Repository.List(ctx,
		repository.SelectBy("account_id", "=", accountID.String()),
		repository.SelectOrderAsc("created_at"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list activation tokens")
	}
	return records, nil
}

// DeleteByCodeTx removes one code and reports whether this call removed it.
func (r *activationTokens) DeleteByCodeTx(ctx context.Context, tx bun.IDB, code string) (bool, error) {
	res, err := tx.NewDelete().
		Model((*ActivationToken)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete activation token")
	}
	return affected(res), nil
}

func (r *activationTokens) DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) error {
	err := r.Repository.DeleteWhereTx(ctx, tx, repository.DeleteBy("account_id", "=", accountID.String()))
	if err != nil {
		return errors.Wrap(err, "failed to purge activation tokens")
	}
	return nil
}
