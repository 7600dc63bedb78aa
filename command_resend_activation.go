package accounts

import (
	"context"

	"github.com/pkg/errors"
)

// ResendActivationMessage asks for a fresh activation code
type ResendActivationMessage struct {
	Email string `json:"email"`
}

func (e ResendActivationMessage) Type() string { return "account.activation.resend" }

// ResendActivationResponse reports the resend outcome
type ResendActivationResponse struct {
	Errors  FieldErrors `json:"errors,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK reports whether a new code was issued
func (r *ResendActivationResponse) OK() bool {
	return r != nil && len(r.Errors) == 0
}

// ResendActivation issues a new code for an unverified account. Earlier
// codes stay valid until one of them is used.
func (s *Service) ResendActivation(ctx context.Context, msg ResendActivationMessage) (*ResendActivationResponse, error) {
	ctx, cancel, err := s.begin(ctx, "activation resend")
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := EmailForm{Email: NormalizeEmail(msg.Email)}
	errs := validateForm(form)
	if len(errs) > 0 {
		return &ResendActivationResponse{Errors: errs}, nil
	}

	account, err := s.repo.Accounts().FindByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			errs.Add(fieldEmail, CodeEmailNotRegistered)
			return &ResendActivationResponse{Errors: errs}, nil
		}
		return nil, err
	}

	switch account.Status {
	case AccountStatusActive:
		errs.Add(fieldEmail, CodeAlreadyActive)
	case AccountStatusDeactivated:
		errs.Add(fieldEmail, CodeAccountDeactivated)
	}
	if len(errs) > 0 {
		return &ResendActivationResponse{Errors: errs}, nil
	}

	token, err := s.activation.Issue(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue activation code")
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventActivationIssued,
		AccountID: account.ID.String(),
	})

	s.notifier.SendActivation(ctx, account, token.Code)

	return &ResendActivationResponse{Message: MessageActivationResent}, nil
}
