package social

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Identity is a provider identity linked to a local account.
type Identity struct {
	ID             uuid.UUID `json:"id"`
	AccountID      uuid.UUID `json:"account_id"`
	Provider       Provider  `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	Email          string    `json:"email,omitempty"`
	LinkedAt       time.Time `json:"linked_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Assertion is what the upstream OAuth layer tells us about a provider user.
type Assertion struct {
	Provider       Provider `json:"provider"`
	ProviderUserID string   `json:"provider_user_id"`
	Email          string   `json:"email,omitempty"`
}

// IdentityRepository persists identity links. Every method takes the bun
// handle to run on so the ledger can compose them inside one transaction.
type IdentityRepository interface {
	FindByProviderIDTx(ctx context.Context, tx bun.IDB, provider Provider, providerUserID string) (*Identity, error)
	FindByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) ([]*Identity, error)
	CountByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int, error)
	CreateTx(ctx context.Context, tx bun.IDB, identity *Identity) error
	DeleteByAccountAndProviderTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, provider Provider) (int64, error)
}
