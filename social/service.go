package social

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
)

// Service runs the social flows on top of the account core
type Service struct {
	core   *accounts.Service
	ledger *Ledger
	logger accounts.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger overrides the logger, defaulting to the core logger
func WithLogger(logger accounts.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds the social service
func NewService(core *accounts.Service, ledger *Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		core:   core,
		ledger: ledger,
		logger: core.Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Ledger returns the identity ledger
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// LinkMessage links an identity to the session account
type LinkMessage struct {
	Session   accounts.Session
	Assertion Assertion
}

func (e LinkMessage) Type() string { return "social.link" }

// LinkResponse reports a link outcome. Conflict is set when the identity
// already belongs to another account.
type LinkResponse struct {
	Identity *Identity               `json:"identity,omitempty"`
	Code     accounts.ErrorCode      `json:"code,omitempty"`
	Message  string                  `json:"message"`
	Conflict *AlreadyAssociatedError `json:"-"`
}

// OK reports whether the identity is linked
func (r *LinkResponse) OK() bool {
	return r != nil && r.Code == "" && r.Identity != nil
}

// Link attaches the asserted identity to the session account
func (s *Service) Link(ctx context.Context, msg LinkMessage) (*LinkResponse, error) {
	account, err := s.core.AccountForSession(ctx, msg.Session)
	if err != nil {
		return nil, err
	}

	if !account.IsActive() {
		return nil, accounts.ErrAccountInactive
	}

	identity, err := s.ledger.LinkIdentity(ctx, account, msg.Assertion)
	if err != nil {
		code, message, ok := outcome(err)
		if !ok {
			return nil, err
		}
		res := &LinkResponse{Code: code, Message: message}
		errors.As(err, &res.Conflict)
		return res, nil
	}

	s.core.RecordActivity(ctx, accounts.ActivityEvent{
		EventType: accounts.ActivityEventSocialIdentityLinked,
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"provider":         identity.Provider,
			"provider_user_id": identity.ProviderUserID,
		},
	})

	return &LinkResponse{Identity: identity, Message: MessageLinked}, nil
}

// UnlinkMessage removes a provider link from the session account
type UnlinkMessage struct {
	Session  accounts.Session
	Provider string
}

func (e UnlinkMessage) Type() string { return "social.unlink" }

// UnlinkResponse reports an unlink outcome
type UnlinkResponse struct {
	Code    accounts.ErrorCode `json:"code,omitempty"`
	Message string             `json:"message"`
}

// OK reports whether the link was removed
func (r *UnlinkResponse) OK() bool {
	return r != nil && r.Code == ""
}

// Unlink removes a provider link from the session account
func (s *Service) Unlink(ctx context.Context, msg UnlinkMessage) (*UnlinkResponse, error) {
	account, err := s.core.AccountForSession(ctx, msg.Session)
	if err != nil {
		return nil, err
	}

	provider, err := ParseProvider(msg.Provider)
	if err == nil {
		err = s.ledger.UnlinkIdentity(ctx, account, provider)
	}

	if err != nil {
		code, message, ok := outcome(err)
		if !ok {
			return nil, err
		}
		return &UnlinkResponse{Code: code, Message: message}, nil
	}

	s.core.RecordActivity(ctx, accounts.ActivityEvent{
		EventType: accounts.ActivityEventSocialIdentityRemoved,
		AccountID: account.ID.String(),
		Metadata:  map[string]any{"provider": provider},
	})

	return &UnlinkResponse{Message: MessageUnlinked}, nil
}

// LoginMessage signs in with a provider identity
type LoginMessage struct {
	Assertion Assertion
}

func (e LoginMessage) Type() string { return "social.login" }

// Validate will run validation rules
func (e LoginMessage) Validate() error {
	a := e.Assertion
	return validation.ValidateStruct(&a,
		validation.Field(&a.ProviderUserID, validation.Required.Error("This field is required.")),
		validation.Field(&a.Email, is.Email.Error("Enter a valid email address.")),
	)
}

// LoginResponse reports a social sign in outcome
type LoginResponse struct {
	Token   string                  `json:"token,omitempty"`
	Session *accounts.SessionObject `json:"session,omitempty"`
	Account *accounts.Account       `json:"account,omitempty"`
	Created bool                    `json:"created,omitempty"`
	Errors  accounts.FieldErrors    `json:"errors,omitempty"`
	Code    accounts.ErrorCode      `json:"code,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// OK reports whether a session was established
func (r *LoginResponse) OK() bool {
	return r != nil && r.Token != "" && r.Code == "" && len(r.Errors) == 0
}

// Login signs in with a linked identity. An unknown identity whose email is
// not registered creates an active account without a usable password. An
// unknown identity whose email is registered is refused so the owner can
// log in and link it explicitly.
func (s *Service) Login(ctx context.Context, msg LoginMessage) (*LoginResponse, error) {
	if _, err := ParseProvider(string(msg.Assertion.Provider)); err != nil {
		return &LoginResponse{Code: CodeUnsupportedProvider, Message: MessageUnsupportedProvider}, nil
	}

	if errs := accounts.FieldErrorsFromValidation(msg.Validate()); len(errs) > 0 {
		return &LoginResponse{Errors: errs}, nil
	}

	assertion, err := normalizeAssertion(msg.Assertion)
	if err != nil {
		return nil, err
	}

	repo := s.core.Repository()
	res := &LoginResponse{}

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := s.ledger.FindAccountTx(ctx, tx, assertion)
		switch {
		case err == nil:
		case errors.Is(err, ErrIdentityNotFound):
			account, err = s.signUpTx(ctx, tx, assertion, res)
			if err != nil || account == nil {
				return err
			}
		default:
			return err
		}

		if !account.IsActive() {
			res.Code = accounts.CodeEmailNotVerified
			res.Message = accounts.MessageEmailNotVerified
			return nil
		}

		if err := repo.Accounts().TrackLoginTx(ctx, tx, account); err != nil {
			return err
		}

		token, session, err := s.core.Sessions().CreateTx(ctx, tx, account)
		if err != nil {
			return err
		}

		res.Account = account
		res.Token = token
		res.Session = session
		res.Message = accounts.MessageLoggedIn
		return nil
	})

	if err != nil {
		if code, message, ok := outcome(err); ok {
			return &LoginResponse{Code: code, Message: message}, nil
		}
		return nil, errors.Wrap(err, "social login transaction failed")
	}

	if res.Account == nil {
		return res, nil
	}

	if res.Created {
		s.core.RecordActivity(ctx, accounts.ActivityEvent{
			EventType: accounts.ActivityEventAccountRegistered,
			AccountID: res.Account.ID.String(),
			ToStatus:  res.Account.Status,
			Metadata:  map[string]any{"provider": assertion.Provider},
		})
	}

	s.core.RecordActivity(ctx, accounts.ActivityEvent{
		EventType: accounts.ActivityEventSocialLogin,
		AccountID: res.Account.ID.String(),
		Metadata: map[string]any{
			"provider":   assertion.Provider,
			"session_id": res.Session.ID,
		},
	})

	return res, nil
}

// signUpTx creates the account behind an unknown identity. An email that is
// already registered yields ErrEmailRegisteredLocally.
func (s *Service) signUpTx(ctx context.Context, tx bun.IDB, assertion Assertion, res *LoginResponse) (*accounts.Account, error) {
	if assertion.Email == "" {
		res.Errors = accounts.FieldErrors{}
		res.Errors.Add("email", accounts.CodeRequired)
		return nil, nil
	}

	email := accounts.NormalizeEmail(assertion.Email)

	_, err := s.core.Repository().Accounts().FindByEmailTx(ctx, tx, email)
	switch {
	case err == nil:
		return nil, ErrEmailRegisteredLocally
	case !errors.Is(err, accounts.ErrAccountNotFound):
		return nil, err
	}

	now := s.core.Now()
	account, err := s.core.Repository().Accounts().CreateTx(ctx, tx, &accounts.Account{
		Email:        email,
		PasswordHash: accounts.UnusablePasswordHash(),
		Status:       accounts.AccountStatusActive,
		ActivatedAt:  &now,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrEmailAlreadyExists) {
			return nil, ErrEmailRegisteredLocally
		}
		return nil, err
	}

	if _, err := s.ledger.LinkIdentityTx(ctx, tx, account, assertion); err != nil {
		return nil, err
	}

	res.Created = true
	return account, nil
}
