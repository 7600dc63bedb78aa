package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/social"
)

// SocialIdentityModel is the Bun model for social identity links.
type SocialIdentityModel struct {
	bun.BaseModel `bun:"table:social_identities,alias:sid"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	AccountID      uuid.UUID `bun:"account_id,notnull,type:uuid,unique:account_provider"`
	Provider       string    `bun:"provider,notnull,unique:provider_identity,unique:account_provider"`
	ProviderUserID string    `bun:"provider_user_id,notnull,unique:provider_identity"`
	Email          string    `bun:"email"`
	LinkedAt       time.Time `bun:"linked_at,notnull"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

// SocialIdentityRepository implements social.IdentityRepository using Bun.
type SocialIdentityRepository struct {
	models repository.Repository[*SocialIdentityModel]
}

var _ social.IdentityRepository = (*SocialIdentityRepository)(nil)

// NewSocialIdentityRepository creates a new repository.
func NewSocialIdentityRepository(db bun.IDB) *SocialIdentityRepository {
	return &SocialIdentityRepository{
		models: repository.NewRepository[*SocialIdentityModel](db, repository.ModelHandlers[*SocialIdentityModel]{
			NewRecord: func() *SocialIdentityModel { return &SocialIdentityModel{} },
			GetID: func(m *SocialIdentityModel) uuid.UUID {
				if m == nil {
					return uuid.Nil
				}
				return m.ID
			},
			SetID: func(m *SocialIdentityModel, id uuid.UUID) {
				if m != nil {
					m.ID = id
				}
			},
			GetIdentifier: func() string {
				return "provider_user_id"
			},
		}),
	}
}

// MigrateSocialIdentities creates the social_identities table and its indexes.
func MigrateSocialIdentities(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*SocialIdentityModel)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create social_identities")
	}

	if _, err := db.NewCreateIndex().
		Model((*SocialIdentityModel)(nil)).
		Index("social_identities_account_id_idx").
		Column("account_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to index social_identities")
	}

	return nil
}

// FindByProviderIDTx implements social.IdentityRepository.
func (r *SocialIdentityRepository) FindByProviderIDTx(ctx context.Context, tx bun.IDB, provider social.Provider, providerUserID string) (*social.Identity, error) {
	model, err := r.models.GetTx(ctx, tx,
		repository.SelectBy("provider", "=", string(provider)),
		repository.SelectBy("provider_user_id", "=", providerUserID),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, social.ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, "failed to find social identity")
	}
	return toIdentity(model), nil
}

// FindByAccountTx implements social.IdentityRepository.
func (r *SocialIdentityRepository) FindByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]*social.Identity, error) {
	models, _, err := r.models.ListTx(ctx, tx,
		repository.SelectBy("account_id", "=", accountID.String()),
		repository.SelectOrderAsc("linked_at"),
	)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, errors.Wrap(err, "failed to list social identities")
	}

	out := make([]*social.Identity, len(models))
	for i := range models {
		out[i] = toIdentity(models[i])
	}
	return out, nil
}

// CountByAccountTx implements social.IdentityRepository.
func (r *SocialIdentityRepository) CountByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int, error) {
	_, total, err := r.models.ListTx(ctx, tx,
		repository.SelectBy("account_id", "=", accountID.String()),
		repository.SelectColumns("id"),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count social identities")
	}
	return total, nil
}

// CreateTx implements social.IdentityRepository.
func (r *SocialIdentityRepository) CreateTx(ctx context.Context, tx bun.IDB, identity *social.Identity) error {
	if identity == nil {
		return social.ErrInvalidAssertion
	}

	model, err := r.models.CreateTx(ctx, tx, fromIdentity(identity))
	if err != nil {
		if accounts.IsUniqueViolation(err) {
			return social.ErrIdentityConflict
		}
		return errors.Wrap(err, "failed to insert social identity")
	}

	identity.ID = model.ID
	return nil
}

// DeleteByAccountAndProviderTx implements social.IdentityRepository.
func (r *SocialIdentityRepository) DeleteByAccountAndProviderTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, provider social.Provider) (int64, error) {
	res, err := tx.NewDelete().
		Model((*SocialIdentityModel)(nil)).
		Where("account_id = ? AND provider = ?", accountID, string(provider)).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete social identity")
	}
	return res.RowsAffected()
}

func toIdentity(m *SocialIdentityModel) *social.Identity {
	return &social.Identity{
		ID:             m.ID,
		AccountID:      m.AccountID,
		Provider:       social.Provider(m.Provider),
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		LinkedAt:       m.LinkedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func fromIdentity(i *social.Identity) *SocialIdentityModel {
	return &SocialIdentityModel{
		ID:             i.ID,
		AccountID:      i.AccountID,
		Provider:       string(i.Provider),
		ProviderUserID: i.ProviderUserID,
		Email:          i.Email,
		LinkedAt:       i.LinkedAt,
		UpdatedAt:      i.UpdatedAt,
	}
}
