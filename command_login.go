package accounts

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// LoginMessage is the login input
type LoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Type() string { return "account.login" }

// LoginResponse reports the login outcome
type LoginResponse struct {
	Token   string         `json:"token,omitempty"`
	Session *SessionObject `json:"session,omitempty"`
	Account *Account       `json:"account,omitempty"`
	Errors  FieldErrors    `json:"errors,omitempty"`
	Message string         `json:"message,omitempty"`
}

// OK reports whether a session was established
func (r *LoginResponse) OK() bool {
	return r != nil && len(r.Errors) == 0 && r.Token != ""
}

// Login checks the credentials and establishes a session. Email problems
// and password problems are reported together. The password is only
// compared when an active account owns the email.
func (s *Service) Login(ctx context.Context, msg LoginMessage) (*LoginResponse, error) {
	ctx, cancel, err := s.begin(ctx, "login")
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := LoginForm{Email: NormalizeEmail(msg.Email), Password: msg.Password}
	errs := validateForm(form)

	var account *Account
	if !errs.Has(fieldEmail) {
		account, err = s.repo.Accounts().FindByEmail(ctx, form.Email)
		switch {
		case errors.Is(err, ErrAccountNotFound):
			account = nil
			errs.Add(fieldEmail, CodeEmailNotRegistered)
		case err != nil:
			return nil, err
		case !account.IsActive():
			errs.Add(fieldEmail, CodeEmailNotVerified)
		}
	}

	if !errs.Has(fieldPassword) && account.IsActive() {
		if !s.repo.Accounts().VerifyPassword(account, form.Password) {
			errs.Add(fieldPassword, CodeIncorrectPassword)
		}
	}

	if len(errs) > 0 {
		event := ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{ID: form.Email, Type: "anonymous"},
			Metadata:  map[string]any{"fields": errs.Messages()},
		}
		if account != nil {
			event.AccountID = account.ID.String()
		}
		s.RecordActivity(ctx, event)
		return &LoginResponse{Errors: errs, Message: MessageLoginFailed}, nil
	}

	var token string
	var session *SessionObject

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Accounts().TrackLoginTx(ctx, tx, account); err != nil {
			return err
		}
		var err error
		token, session, err = s.sessions.CreateTx(ctx, tx, account)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "login transaction failed")
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: account.ID.String(),
		Metadata:  map[string]any{"session_id": session.ID},
	})

	return &LoginResponse{
		Token:   token,
		Session: session,
		Account: account,
		Message: MessageLoggedIn,
	}, nil
}
