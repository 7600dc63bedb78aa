package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// DeactivateMessage deactivates the session account
type DeactivateMessage struct {
	Session Session `json:"-"`
	Reason  string  `json:"reason,omitempty"`
}

func (e DeactivateMessage) Type() string { return "account.deactivate" }

// DeactivateResponse reports the deactivation outcome
type DeactivateResponse struct {
	Account *Account `json:"account,omitempty"`
	Message string   `json:"message"`
}

// Deactivate moves the account from active to deactivated and ends every
// session it owns.
func (s *Service) Deactivate(ctx context.Context, msg DeactivateMessage) (*DeactivateResponse, error) {
	ctx, cancel, err := s.begin(ctx, "deactivation")
	if err != nil {
		return nil, err
	}
	defer cancel()

	account, err := s.AccountForSession(ctx, msg.Session)
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.lifecycle.Transition(ctx,
			ActorRef{ID: account.ID.String(), Type: "account"},
			account,
			AccountStatusDeactivated,
			WithTransitionTx(tx),
			WithTransitionReason(msg.Reason),
		); err != nil {
			return err
		}
		_, err := s.sessions.RevokeAllTx(ctx, tx, account.ID)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "deactivation transaction failed")
	}

	return &DeactivateResponse{Account: account, Message: MessageDeactivated}, nil
}
