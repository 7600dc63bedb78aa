package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

type testSession struct {
	ID string
}

var errBadToken = errors.New("bad token")

func validator(valid string) jwtware.SessionValidator {
	return func(ctx context.Context, token string) (any, error) {
		if token != valid {
			return nil, errBadToken
		}
		return &testSession{ID: "session-1"}, nil
	}
}

func newApp(t *testing.T, cfg jwtware.Config) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		key := cfg.ContextKey
		if key == "" {
			key = "session"
		}
		session, ok := c.Locals(key).(*testSession)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(session.ID)
	})
	return app
}

func do(t *testing.T, app *fiber.App, header, cookie string) (int, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	if cookie != "" {
		req.Header.Set(fiber.HeaderCookie, cookie)
	}

	res, err := app.Test(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(raw)
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	app := newApp(t, jwtware.Config{Validator: validator("good")})

	status, out := do(t, app, "Bearer good", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "session-1", out)

	status, out = do(t, app, "", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, jwtware.ErrJWTMissingOrMalformed.Error(), out)

	status, _ = do(t, app, "Bearer bad", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, "Basic good", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestJWTWare_CookieFallback(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Validator:   validator("good"),
		TokenLookup: "header:Authorization,cookie:session",
	})

	status, out := do(t, app, "", "session=good")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "session-1", out)
}

func TestJWTWare_Optional(t *testing.T) {
	app := newApp(t, jwtware.Config{Validator: validator("good"), Optional: true})

	status, out := do(t, app, "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", out)

	status, out = do(t, app, "Bearer bad", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", out)
}

func TestJWTWare_FilterSkips(t *testing.T) {
	app := newApp(t, jwtware.Config{
		Validator: validator("good"),
		Filter:    func(*fiber.Ctx) bool { return true },
	})

	status, out := do(t, app, "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", out)
}

func TestJWTWare_ValidationListenerRejects(t *testing.T) {
	var seen any
	app := newApp(t, jwtware.Config{
		Validator: validator("good"),
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c *fiber.Ctx, session any) error {
				seen = session
				return errors.New("rejected")
			},
		},
	})

	status, _ := do(t, app, "Bearer good", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.IsType(t, &testSession{}, seen)
}

func TestJWTWare_CustomErrorHandler(t *testing.T) {
	var got error
	app := newApp(t, jwtware.Config{
		Validator: validator("good"),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			got = err
			return c.SendStatus(fiber.StatusTeapot)
		},
	})

	status, _ := do(t, app, "Bearer bad", "")
	assert.Equal(t, fiber.StatusTeapot, status)
	assert.ErrorIs(t, got, errBadToken)
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, cookie:session ,query:token,param:tok,bogus")
	assert.Len(t, extractors, 4)
}

func TestGetDefaultConfig_RequiresValidator(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.GetDefaultConfig(jwtware.Config{})
	})

	cfg := jwtware.GetDefaultConfig(jwtware.Config{Validator: validator("x")})
	assert.Equal(t, "session", cfg.ContextKey)
	assert.Equal(t, "Bearer", cfg.AuthScheme)
	assert.Equal(t, "header:Authorization", cfg.TokenLookup)
}
