package social

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/goliatone/go-accounts"
)

// DefaultAssertionKey is the request locals key where the upstream OAuth
// layer leaves the verified Assertion.
const DefaultAssertionKey = "social_assertion"

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// AssertionKey is the locals key holding the Assertion (default: "social_assertion")
	AssertionKey string

	// RecoveryURL receives conflicting flows with an error query param
	RecoveryURL string
}

// HTTPController handles social identity routes.
type HTTPController struct {
	service *Service
	auth    *accounts.RouteAuthenticator
	config  HTTPConfig
	logger  accounts.Logger
}

// NewHTTPController creates a new social HTTP controller.
func NewHTTPController(service *Service, auth *accounts.RouteAuthenticator, cfg HTTPConfig) *HTTPController {
	if cfg.AssertionKey == "" {
		cfg.AssertionKey = DefaultAssertionKey
	}
	if cfg.RecoveryURL == "" {
		cfg.RecoveryURL = "/accounts/login"
	}

	return &HTTPController{
		service: service,
		auth:    auth,
		config:  cfg,
		logger:  service.logger,
	}
}

// RegisterRoutes registers social routes, usually on the /accounts group.
func (c *HTTPController) RegisterRoutes(router fiber.Router) {
	protected := c.auth.ProtectedRoute()

	router.Post("/social/:provider/link", protected, c.Link)
	router.Post("/social/:provider/login", c.Login)
	router.Delete("/social/:provider", protected, c.Unlink)
}

// Link connects the asserted identity to the current account.
func (c *HTTPController) Link(ctx *fiber.Ctx) error {
	session, err := c.auth.Session(ctx)
	if err != nil {
		return c.auth.AuthErrorHandler(ctx, err)
	}

	assertion, err := c.assertion(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	res, err := c.service.Link(ctx.UserContext(), LinkMessage{Session: session, Assertion: assertion})
	if err != nil {
		return c.internal(ctx, "link", err)
	}

	if res.Conflict != nil {
		return c.redirectRecovery(ctx, res.Code)
	}

	if !res.OK() {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": res.Message, "code": res.Code})
	}

	return ctx.JSON(fiber.Map{
		"message":  res.Message,
		"identity": res.Identity,
	})
}

// Login signs in with the asserted identity.
func (c *HTTPController) Login(ctx *fiber.Ctx) error {
	assertion, err := c.assertion(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	res, err := c.service.Login(ctx.UserContext(), LoginMessage{Assertion: assertion})
	if err != nil {
		return c.internal(ctx, "login", err)
	}

	switch {
	case len(res.Errors) > 0:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": res.Errors.Messages()})
	case res.Code == CodeEmailRegistered, res.Code == CodeAlreadyAssociated:
		return c.redirectRecovery(ctx, res.Code)
	case !res.OK():
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": res.Message, "code": res.Code})
	}

	c.auth.SetSessionCookie(ctx, res.Token, res.Session)

	status := fiber.StatusOK
	if res.Created {
		status = fiber.StatusCreated
	}

	return ctx.Status(status).JSON(fiber.Map{
		"message": res.Message,
		"token":   res.Token,
		"account": res.Account,
		"created": res.Created,
	})
}

// Unlink removes a provider link from the current account.
func (c *HTTPController) Unlink(ctx *fiber.Ctx) error {
	session, err := c.auth.Session(ctx)
	if err != nil {
		return c.auth.AuthErrorHandler(ctx, err)
	}

	res, err := c.service.Unlink(ctx.UserContext(), UnlinkMessage{
		Session:  session,
		Provider: ctx.Params("provider"),
	})
	if err != nil {
		return c.internal(ctx, "unlink", err)
	}

	if !res.OK() {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": res.Message, "code": res.Code})
	}

	return ctx.JSON(fiber.Map{"message": res.Message})
}

func (c *HTTPController) assertion(ctx *fiber.Ctx) (Assertion, error) {
	provider, err := ParseProvider(ctx.Params("provider"))
	if err != nil {
		return Assertion{}, err
	}

	var assertion Assertion
	switch v := ctx.Locals(c.config.AssertionKey).(type) {
	case Assertion:
		assertion = v
	case *Assertion:
		if v == nil {
			return Assertion{}, ErrInvalidAssertion
		}
		assertion = *v
	default:
		return Assertion{}, ErrInvalidAssertion
	}

	if assertion.Provider == "" {
		assertion.Provider = provider
	}
	if assertion.Provider != provider {
		return Assertion{}, ErrInvalidAssertion
	}

	return assertion, nil
}

func (c *HTTPController) redirectRecovery(ctx *fiber.Ctx, code accounts.ErrorCode) error {
	return ctx.Redirect(appendQueryParam(c.config.RecoveryURL, "error", string(code)), http.StatusSeeOther)
}

func (c *HTTPController) badRequest(ctx *fiber.Ctx, err error) error {
	message := err.Error()
	if code, msg, ok := outcome(err); ok {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg, "code": code})
	}
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func (c *HTTPController) internal(ctx *fiber.Ctx, op string, err error) error {
	c.logger.Error("social %s failed: %v", op, err)
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error."})
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
