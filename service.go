package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-print"
	"github.com/pkg/errors"
)

// DefaultOperationTimeout bounds a single operation against the store
const DefaultOperationTimeout = 10 * time.Second

// ServiceOption configures a Service
type ServiceOption func(*serviceSettings)

type serviceSettings struct {
	logger    Logger
	activity  ActivitySink
	now       func() time.Time
	policy    PasswordPolicy
	notifier  Notifier
	lifecycle AccountStateMachine
	timeout   time.Duration
	debug     bool
}

// WithServiceLogger overrides the logger
func WithServiceLogger(logger Logger) ServiceOption {
	return func(s *serviceSettings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceActivitySink sets the sink used to emit account events
func WithServiceActivitySink(sink ActivitySink) ServiceOption {
	return func(s *serviceSettings) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithServiceClock injects a custom clock shared by every component
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *serviceSettings) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithPasswordPolicy overrides the password strength rules
func WithPasswordPolicy(policy PasswordPolicy) ServiceOption {
	return func(s *serviceSettings) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithNotifier sets the mail composition boundary
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *serviceSettings) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithStateMachine overrides the lifecycle state machine
func WithStateMachine(sm AccountStateMachine) ServiceOption {
	return func(s *serviceSettings) {
		if sm != nil {
			s.lifecycle = sm
		}
	}
}

// WithServiceTimeout bounds each operation
func WithServiceTimeout(timeout time.Duration) ServiceOption {
	return func(s *serviceSettings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithServiceDebug logs operation outcomes at debug level
func WithServiceDebug(debug bool) ServiceOption {
	return func(s *serviceSettings) {
		s.debug = debug
	}
}

// Service orchestrates the account operations
type Service struct {
	repo       RepositoryManager
	policy     PasswordPolicy
	lifecycle  AccountStateMachine
	activation *ActivationIssuer
	resets     *ResetTokens
	sessions   *SessionManager
	notifier   Notifier
	activity   ActivitySink
	logger     Logger
	now        func() time.Time
	timeout    time.Duration
	debug      bool
}

// NewService wires the account core from repo and cfg
func NewService(repo RepositoryManager, cfg Config, opts ...ServiceOption) *Service {
	settings := &serviceSettings{
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
		policy:   DefaultStrengthPolicy(),
		notifier: noopNotifier{},
		timeout:  DefaultOperationTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	lifecycle := settings.lifecycle
	if lifecycle == nil {
		lifecycle = NewAccountStateMachine(repo,
			WithStateMachineClock(settings.now),
			WithStateMachineActivitySink(settings.activity),
			WithStateMachineLogger(settings.logger),
		)
	}

	key := []byte(cfg.GetSigningKey())

	tokens := NewTokenService(key, cfg.GetIssuer(), settings.logger).WithClock(settings.now)

	return &Service{
		repo:      repo,
		policy:    settings.policy,
		lifecycle: lifecycle,
		activation: NewActivationIssuer(repo, lifecycle,
			WithActivationWindow(cfg.GetActivationWindow()),
			WithActivationClock(settings.now),
			WithActivationLogger(settings.logger),
		),
		resets: NewResetTokens(key,
			WithResetTokensTimeout(cfg.GetPasswordResetTimeout()),
			WithResetTokensIssuer(cfg.GetIssuer()),
			WithResetTokensClock(settings.now),
		),
		sessions: NewSessionManager(repo.Sessions(), tokens,
			WithSessionDuration(cfg.GetSessionDuration()),
			WithSessionClock(settings.now),
		),
		notifier: settings.notifier,
		activity: settings.activity,
		logger:   settings.logger,
		now:      settings.now,
		timeout:  settings.timeout,
		debug:    settings.debug,
	}
}

// Repository returns the repository manager
func (s *Service) Repository() RepositoryManager {
	return s.repo
}

// Sessions returns the session manager
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Lifecycle returns the state machine
func (s *Service) Lifecycle() AccountStateMachine {
	return s.lifecycle
}

// Activations returns the activation code issuer
func (s *Service) Activations() *ActivationIssuer {
	return s.activation
}

// ResetTokens returns the password reset link issuer
func (s *Service) ResetTokens() *ResetTokens {
	return s.resets
}

// ActivitySink returns the configured sink
func (s *Service) ActivitySink() ActivitySink {
	return s.activity
}

// Logger returns the configured logger
func (s *Service) Logger() Logger {
	return s.logger
}

// Now returns the service clock time
func (s *Service) Now() time.Time {
	return s.now()
}

// PasswordPolicy returns the password strength rules
func (s *Service) PasswordPolicy() PasswordPolicy {
	return s.policy
}

// AccountForSession loads the account behind session. A nil session falls
// back to the one stored in ctx.
func (s *Service) AccountForSession(ctx context.Context, session Session) (*Account, error) {
	if session == nil {
		found, ok := SessionFromContext(ctx)
		if !ok {
			return nil, ErrUnableToFindSession
		}
		session = found
	}
	id, err := session.GetAccountUUID()
	if err != nil {
		return nil, ErrUnableToDecodeSession
	}
	return s.repo.Accounts().FindByID(ctx, id)
}

// RecordActivity emits event on the configured sink
func (s *Service) RecordActivity(ctx context.Context, event ActivityEvent) {
	recordActivity(ctx, s.activity, s.logger, s.now, event)
}

func (s *Service) begin(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	select {
	case <-ctx.Done():
		return ctx, func() {}, errors.Wrap(ctx.Err(), fmt.Sprintf("context cancelled during %s", op))
	default:
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, nil
}

func (s *Service) debugOutcome(op string, v any) {
	if !s.debug {
		return
	}
	s.logger.Debug("%s outcome:\n%s", op, print.MaybePrettyJSON(v))
}

// checkPasswordPair appends mismatch and strength problems for a new password pair
func (s *Service) checkPasswordPair(errs FieldErrors, password1, password2 string) {
	if !errs.Has(fieldPassword1) && !errs.Has(fieldPassword2) && password1 != password2 {
		errs.Add(fieldPassword2, CodePasswordMismatch)
	}
	if !errs.Has(fieldPassword1) {
		err := s.policy.Validate(password1)
		if err == nil {
			err = checkPasswordBytes(password1)
		}
		if err != nil {
			errs.AddMessage(fieldPassword1, CodeWeakPassword, err.Error())
		}
	}
}

type noopNotifier struct{}

func (noopNotifier) SendActivation(context.Context, *Account, string) {}

func (noopNotifier) SendPasswordReset(context.Context, *Account, string, string) {}
