package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ChangePasswordMessage changes the password of the session account
type ChangePasswordMessage struct {
	Session            Session `json:"-"`
	OldPassword        string  `json:"old_password"`
	Password1          string  `json:"password1"`
	Password2          string  `json:"password2"`
	RequireOldPassword bool    `json:"-"`
}

func (e ChangePasswordMessage) Type() string { return "account.password.change" }

// PasswordChangeResponse reports a password change outcome
type PasswordChangeResponse struct {
	Errors          FieldErrors `json:"errors,omitempty"`
	Message         string      `json:"message,omitempty"`
	RevokedSessions int64       `json:"revoked_sessions,omitempty"`
}

// OK reports whether the password was changed
func (r *PasswordChangeResponse) OK() bool {
	return r != nil && len(r.Errors) == 0
}

// ChangePassword replaces the password of an authenticated account. The old
// password is required and verified only with RequireOldPassword. Every
// session of the account, the current one included, is revoked.
func (s *Service) ChangePassword(ctx context.Context, msg ChangePasswordMessage) (*PasswordChangeResponse, error) {
	ctx, cancel, err := s.begin(ctx, "password change")
	if err != nil {
		return nil, err
	}
	defer cancel()

	account, err := s.AccountForSession(ctx, msg.Session)
	if err != nil {
		return nil, err
	}

	form := ChangePasswordForm{
		OldPassword: msg.OldPassword,
		Password1:   msg.Password1,
		Password2:   msg.Password2,
	}
	errs := validateForm(form)

	if msg.RequireOldPassword {
		switch {
		case form.OldPassword == "":
			errs.Add(fieldOldPassword, CodePasswordRequired)
		case !s.repo.Accounts().VerifyPassword(account, form.OldPassword):
			errs.Add(fieldOldPassword, CodeIncorrectPassword)
		}
	}

	s.checkPasswordPair(errs, form.Password1, form.Password2)

	if len(errs) > 0 {
		return &PasswordChangeResponse{Errors: errs}, nil
	}

	revoked, err := s.replacePassword(ctx, account, form.Password1)
	if err != nil {
		return nil, err
	}

	return &PasswordChangeResponse{Message: MessagePasswordChanged, RevokedSessions: revoked}, nil
}

// SetPasswordMessage sets a local password for the session account
type SetPasswordMessage struct {
	Session     Session `json:"-"`
	OldPassword string  `json:"old_password"`
	Password1   string  `json:"password1"`
	Password2   string  `json:"password2"`
}

func (e SetPasswordMessage) Type() string { return "account.password.set" }

// SetPassword lets an account created through social sign-in pick a local
// password. Accounts that already own a usable password must confirm it.
func (s *Service) SetPassword(ctx context.Context, msg SetPasswordMessage) (*PasswordChangeResponse, error) {
	account, err := s.AccountForSession(ctx, msg.Session)
	if err != nil {
		return nil, err
	}

	return s.ChangePassword(ctx, ChangePasswordMessage{
		Session:            msg.Session,
		OldPassword:        msg.OldPassword,
		Password1:          msg.Password1,
		Password2:          msg.Password2,
		RequireOldPassword: account.HasUsablePassword(),
	})
}

// ConfirmPasswordResetMessage completes a forgot password flow
type ConfirmPasswordResetMessage struct {
	Ref       string  `json:"ref"`
	Token     string  `json:"token"`
	Password1 string  `json:"password1"`
	Password2 string  `json:"password2"`
	Session   Session `json:"-"`
}

func (e ConfirmPasswordResetMessage) Type() string { return "account.password.reset.confirm" }

// ConfirmPasswordResetResponse reports the reset outcome
type ConfirmPasswordResetResponse struct {
	PasswordChangeResponse
	InvalidLink bool `json:"invalid_link,omitempty"`
}

// ConfirmPasswordReset validates the new password pair, then the link, and
// replaces the password. Link failures are reported uniformly.
func (s *Service) ConfirmPasswordReset(ctx context.Context, msg ConfirmPasswordResetMessage) (*ConfirmPasswordResetResponse, error) {
	ctx, cancel, err := s.begin(ctx, "password reset")
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := SetPasswordForm{Password1: msg.Password1, Password2: msg.Password2}
	errs := validateForm(form)
	s.checkPasswordPair(errs, form.Password1, form.Password2)

	if len(errs) > 0 {
		return &ConfirmPasswordResetResponse{PasswordChangeResponse: PasswordChangeResponse{Errors: errs}}, nil
	}

	account, err := s.resets.Validate(ctx, s.repo.Accounts(), msg.Token, msg.Ref)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredLink) {
			return &ConfirmPasswordResetResponse{
				InvalidLink: true,
				PasswordChangeResponse: PasswordChangeResponse{
					Message: MessageInvalidOrExpiredLink,
				},
			}, nil
		}
		return nil, err
	}

	revoked, err := s.replacePassword(ctx, account, form.Password1)
	if err != nil {
		return nil, err
	}

	// the caller may be logged in as someone else
	if msg.Session != nil && msg.Session.GetAccountID() != account.ID.String() {
		if err := s.sessions.Revoke(ctx, msg.Session); err != nil {
			s.logger.Warn("password reset could not revoke caller session: %v", err)
		}
	}

	return &ConfirmPasswordResetResponse{
		PasswordChangeResponse: PasswordChangeResponse{
			Message:         MessagePasswordChanged,
			RevokedSessions: revoked,
		},
	}, nil
}

// replacePassword rehashes and revokes every session of account atomically.
func (s *Service) replacePassword(ctx context.Context, account *Account, password string) (int64, error) {
	var revoked int64
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Accounts().SetPasswordTx(ctx, tx, account, password); err != nil {
			return err
		}
		var err error
		revoked, err = s.sessions.RevokeAllTx(ctx, tx, account.ID)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "password change transaction failed")
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		AccountID: account.ID.String(),
		Metadata:  map[string]any{"revoked_sessions": revoked},
	})

	return revoked, nil
}
