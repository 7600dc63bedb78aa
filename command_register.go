package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// RegisterMessage is the registration input
type RegisterMessage struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

func (e RegisterMessage) Type() string { return "account.register" }

// RegisterResponse reports the registration outcome
type RegisterResponse struct {
	Account *Account    `json:"account,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK reports whether the account was created
func (r *RegisterResponse) OK() bool {
	return r != nil && len(r.Errors) == 0
}

// Register creates an unverified account, issues an activation code and
// enqueues the activation mail. Field checks run in order: email
// uniqueness, password confirmation, password strength.
func (s *Service) Register(ctx context.Context, msg RegisterMessage) (*RegisterResponse, error) {
	ctx, cancel, err := s.begin(ctx, "registration")
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := RegisterForm{
		Email:     NormalizeEmail(msg.Email),
		Password1: msg.Password1,
		Password2: msg.Password2,
	}

	errs := validateForm(form)

	if !errs.Has(fieldEmail) {
		_, err := s.repo.Accounts().FindByEmail(ctx, form.Email)
		switch {
		case err == nil:
			errs.Add(fieldEmail, CodeEmailAlreadyExists)
		case !errors.Is(err, ErrAccountNotFound):
			return nil, err
		}
	}

	s.checkPasswordPair(errs, form.Password1, form.Password2)

	if len(errs) > 0 {
		return &RegisterResponse{Errors: errs}, nil
	}

	var account *Account
	var token *ActivationToken

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if account, err = s.repo.Accounts().RegisterTx(ctx, tx, form.Email, form.Password1); err != nil {
			return err
		}
		token, err = s.activation.IssueTx(ctx, tx, account)
		return err
	})

	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			errs.Add(fieldEmail, CodeEmailAlreadyExists)
			return &RegisterResponse{Errors: errs}, nil
		}
		return nil, errors.Wrap(err, "registration transaction failed")
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		AccountID: account.ID.String(),
		ToStatus:  account.Status,
	})

	s.notifier.SendActivation(ctx, account, token.Code)

	res := &RegisterResponse{
		Account: account,
		Message: MessageRegistered,
	}
	s.debugOutcome(msg.Type(), res)

	return res, nil
}
