package accounts

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// RouteAuthenticator guards fiber routes with account sessions and manages
// the session cookie.
type RouteAuthenticator struct {
	sessions         *SessionManager
	cfg              Config
	Logger           Logger
	AuthErrorHandler fiber.ErrorHandler
	listeners        []jwtware.ValidationListener
}

// NewHTTPAuthenticator builds a RouteAuthenticator on top of sessions
func NewHTTPAuthenticator(sessions *SessionManager, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		sessions: sessions,
		cfg:      cfg,
		Logger:   defLogger{},
	}
	a.AuthErrorHandler = a.defaultAuthErrHandler
	a.listeners = []jwtware.ValidationListener{ContextEnricher}
	return a
}

// RegisterValidationListeners appends listeners run after a session token
// validates. Returning an error rejects the request.
func (a *RouteAuthenticator) RegisterValidationListeners(listeners ...jwtware.ValidationListener) {
	a.listeners = append(a.listeners, listeners...)
}

// ProtectedRoute rejects requests without a live session
func (a *RouteAuthenticator) ProtectedRoute() fiber.Handler {
	return a.middleware(false)
}

// OptionalRoute loads the session when present and never rejects
func (a *RouteAuthenticator) OptionalRoute() fiber.Handler {
	return a.middleware(true)
}

func (a *RouteAuthenticator) middleware(optional bool) fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:          a.contextKey(),
		TokenLookup:         a.cfg.GetTokenLookup(),
		Optional:            optional,
		ErrorHandler:        a.AuthErrorHandler,
		ValidationListeners: a.listeners,
		Validator: func(ctx context.Context, token string) (any, error) {
			return a.sessions.Validate(ctx, token)
		},
	})
}

// Session returns the session stored by the middleware
func (a *RouteAuthenticator) Session(c *fiber.Ctx) (Session, error) {
	return GetSession(c, a.contextKey())
}

// SetSessionCookie stores token in the session cookie
func (a *RouteAuthenticator) SetSessionCookie(c *fiber.Ctx, token string, session *SessionObject) {
	expires := time.Now().Add(DefaultSessionDuration)
	if session != nil && session.ExpiresAt != nil {
		expires = *session.ExpiresAt
	}
	c.Cookie(&fiber.Cookie{
		Name:     a.cookieName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie
func (a *RouteAuthenticator) ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) contextKey() string {
	if key := a.cfg.GetContextKey(); key != "" {
		return key
	}
	return "session"
}

func (a *RouteAuthenticator) cookieName() string {
	if name := a.cfg.GetCookieName(); name != "" {
		return name
	}
	return "session"
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c *fiber.Ctx, err error) error {
	message := "Invalid or expired session."
	switch {
	case errors.Is(err, jwtware.ErrJWTMissingOrMalformed), errors.Is(err, ErrUnableToFindSession):
		message = "Authentication required."
	case errors.Is(err, ErrSessionRevoked):
		message = "Session has been revoked."
	case IsTokenExpiredError(err):
		message = "Session expired."
	}

	a.Logger.Debug("authentication rejected for %s: %v", c.OriginalURL(), err)

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": message})
}

// GetSession returns the Session stored in the request locals under key
func GetSession(c *fiber.Ctx, key string) (Session, error) {
	value := c.Locals(key)
	if value == nil {
		return nil, ErrUnableToFindSession
	}

	session, ok := value.(Session)
	if !ok || session == nil {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}
