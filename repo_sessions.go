package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Sessions persists issued sessions
type Sessions interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *SessionRecord) (*SessionRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*SessionRecord, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ErrSessionNotFound no session row matches the id
var ErrSessionNotFound = errors.New("session not found")

type sessions struct {
	repository.Repository[*SessionRecord]
	db *bun.DB
}

// NewSessionsRepository returns a bun backed session store
func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{
		Repository: repository.NewRepository[*SessionRecord](db, repository.ModelHandlers[*SessionRecord]{
			NewRecord: func() *SessionRecord { return &SessionRecord{} },
			GetID: func(s *SessionRecord) uuid.UUID {
				if s == nil {
					return uuid.Nil
				}
				return s.ID
			},
			SetID: func(s *SessionRecord, id uuid.UUID) {
				if s != nil {
					s.ID = id
				}
			},
			GetIdentifier: func() string {
				return "id"
			},
		}),
		db: db,
	}
}

func (r *sessions) CreateTx(ctx context.Context, tx bun.IDB, record *SessionRecord) (*SessionRecord, error) {
	if record == nil {
		return nil, errors.New("session record is nil")
	}
	created, err := r.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert session")
	}
	return created, nil
}

func (r *sessions) FindByID(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	record, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "failed to find session")
	}
	return record, nil
}

func (r *sessions) CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	_, total, err := r.Repository.List(ctx,
		repository.SelectBy("account_id", "=", accountID.String()),
		repository.SelectColumns("id"),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count sessions")
	}
	return total, nil
}

func (r *sessions) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.DeleteByIDTx(ctx, r.db, id)
}

func (r *sessions) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if err := r.Repository.DeleteWhereTx(ctx, tx, repository.DeleteByID(id.String())); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

// DeleteByAccountTx revokes every session of the account and reports how many
// rows went away.
func (r *sessions) DeleteByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("account_id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to revoke sessions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge expired sessions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
