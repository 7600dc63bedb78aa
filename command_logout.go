package accounts

import (
	"context"

	"github.com/pkg/errors"
)

// LogoutMessage ends one session
type LogoutMessage struct {
	Session Session `json:"-"`
}

func (e LogoutMessage) Type() string { return "account.logout" }

// LogoutResponse reports the logout outcome
type LogoutResponse struct {
	Message string `json:"message"`
}

// Logout revokes the current session only
func (s *Service) Logout(ctx context.Context, msg LogoutMessage) (*LogoutResponse, error) {
	ctx, cancel, err := s.begin(ctx, "logout")
	if err != nil {
		return nil, err
	}
	defer cancel()

	if msg.Session == nil {
		session, ok := SessionFromContext(ctx)
		if !ok {
			return nil, ErrUnableToFindSession
		}
		msg.Session = session
	}

	if err := s.sessions.Revoke(ctx, msg.Session); err != nil {
		return nil, errors.Wrap(err, "failed to revoke session")
	}

	s.RecordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		AccountID: msg.Session.GetAccountID(),
		Metadata:  map[string]any{"session_id": msg.Session.GetSessionID()},
	})

	return &LogoutResponse{Message: MessageLoggedOut}, nil
}
