package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok && raw != nil
}

// ContextEnricher copies a validated session into the request user context
// so services called with c.UserContext() can find it.
func ContextEnricher(c *fiber.Ctx, session any) error {
	if s, ok := session.(Session); ok && s != nil {
		c.SetUserContext(WithSessionContext(c.UserContext(), s))
	}
	return nil
}
