package accounts

import (
	"context"

	"github.com/pkg/errors"
)

// ForgotPasswordMessage asks for a password reset link
type ForgotPasswordMessage struct {
	Email string `json:"email"`
}

func (e ForgotPasswordMessage) Type() string { return "account.password.forgot" }

// ForgotPasswordResponse reports the forgot password outcome
type ForgotPasswordResponse struct {
	Errors  FieldErrors `json:"errors,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK reports whether a link was dispatched
func (r *ForgotPasswordResponse) OK() bool {
	return r != nil && len(r.Errors) == 0
}

// ForgotPassword mails a reset link to an active account. Unverified and
// deactivated accounts are both refused as not verified.
func (s *Service) ForgotPassword(ctx context.Context, msg ForgotPasswordMessage) (*ForgotPasswordResponse, error) {
	ctx, cancel, err := s.begin(ctx, "forgot password")
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := EmailForm{Email: NormalizeEmail(msg.Email)}
	errs := validateForm(form)
	if len(errs) > 0 {
		return &ForgotPasswordResponse{Errors: errs}, nil
	}

	account, err := s.repo.Accounts().FindByEmail(ctx, form.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			errs.Add(fieldEmail, CodeEmailNotRegistered)
			return &ForgotPasswordResponse{Errors: errs}, nil
		}
		return nil, err
	}

	if !account.IsActive() {
		errs.Add(fieldEmail, CodeEmailNotVerified)
		return &ForgotPasswordResponse{Errors: errs}, nil
	}

	token, ref, err := s.resets.Issue(account)
	if err != nil {
		return nil, err
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		AccountID: account.ID.String(),
	})

	s.notifier.SendPasswordReset(ctx, account, ref, token)

	return &ForgotPasswordResponse{Message: MessageResetLinkSent}, nil
}
