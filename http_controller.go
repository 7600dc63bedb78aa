package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// SettingsProvider contributes extra entries to the settings view, for
// example the social identities linked to account.
type SettingsProvider func(ctx context.Context, account *Account) (map[string]any, error)

// HTTPController exposes the account operations over fiber
type HTTPController struct {
	Debug    bool
	Logger   Logger
	Service  *Service
	Auth     *RouteAuthenticator
	Settings []SettingsProvider
}

// HTTPControllerOption configures an HTTPController
type HTTPControllerOption func(*HTTPController) *HTTPController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) HTTPControllerOption {
	return func(h *HTTPController) *HTTPController {
		if logger != nil {
			h.Logger = logger
		}
		return h
	}
}

// WithControllerDebug dumps request payloads at debug level
func WithControllerDebug(debug bool) HTTPControllerOption {
	return func(h *HTTPController) *HTTPController {
		h.Debug = debug
		return h
	}
}

// WithSettingsProvider appends a settings contributor
func WithSettingsProvider(provider SettingsProvider) HTTPControllerOption {
	return func(h *HTTPController) *HTTPController {
		if provider != nil {
			h.Settings = append(h.Settings, provider)
		}
		return h
	}
}

// NewHTTPController builds the controller. It panics when service or auth are missing.
func NewHTTPController(service *Service, auth *RouteAuthenticator, opts ...HTTPControllerOption) *HTTPController {
	h := &HTTPController{
		Logger:  defLogger{},
		Service: service,
		Auth:    auth,
	}
	for _, opt := range opts {
		h = opt(h)
	}

	if h.Service == nil {
		panic("Missing Service in accounts controller...")
	}

	if h.Auth == nil {
		panic("Missing RouteAuthenticator in accounts controller...")
	}

	return h
}

// RegisterRoutes mounts the account routes on router, usually a group at /accounts
func (h *HTTPController) RegisterRoutes(router fiber.Router) {
	protected := h.Auth.ProtectedRoute()
	optional := h.Auth.OptionalRoute()

	router.Post("/register", h.Register)
	router.Get("/activate/:code", h.Activate)
	router.Post("/resent-activation-code", h.ResendActivation)
	router.Post("/login", h.Login)
	router.Get("/logout", protected, h.Logout)
	router.Post("/logout", protected, h.Logout)
	router.Post("/password-reset", protected, h.ChangePassword)
	router.Post("/forgot-password", h.ForgotPassword)
	router.Post("/restore-password/:ref/:token", optional, h.RestorePassword)
	router.Get("/deactivate", protected, h.Deactivate)
	router.Post("/deactivate", protected, h.Deactivate)
	router.Get("/settings", protected, h.ShowSettings)
	router.Post("/settings/password", protected, h.SetPassword)
}

// Register handles POST /register
func (h *HTTPController) Register(c *fiber.Ctx) error {
	payload := new(RegisterForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.Register(c.UserContext(), RegisterMessage{
		Email:     payload.Email,
		Password1: payload.Password1,
		Password2: payload.Password2,
	})
	if err != nil {
		return h.internal(c, "register", err)
	}

	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": res.Message,
		"account": res.Account,
	})
}

// Activate handles GET /activate/:code
func (h *HTTPController) Activate(c *fiber.Ctx) error {
	res, err := h.Service.Activate(c.UserContext(), ActivateMessage{Code: c.Params("code")})
	if err != nil {
		return h.internal(c, "activate", err)
	}

	switch res.Outcome {
	case ActivationActivated:
		return c.JSON(fiber.Map{"message": res.Message})
	case ActivationExpired:
		return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": res.Message})
	default:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": res.Message})
	}
}

// ResendActivation handles POST /resent-activation-code
func (h *HTTPController) ResendActivation(c *fiber.Ctx) error {
	payload := new(EmailForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.ResendActivation(c.UserContext(), ResendActivationMessage{Email: payload.Email})
	if err != nil {
		return h.internal(c, "resend activation", err)
	}

	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	return c.JSON(fiber.Map{"message": res.Message})
}

// Login handles POST /login
func (h *HTTPController) Login(c *fiber.Ctx) error {
	payload := new(LoginForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.Login(c.UserContext(), LoginMessage{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return h.internal(c, "login", err)
	}

	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	h.Auth.SetSessionCookie(c, res.Token, res.Session)

	return c.JSON(fiber.Map{
		"message": res.Message,
		"token":   res.Token,
		"account": res.Account,
	})
}

// Logout handles GET|POST /logout
func (h *HTTPController) Logout(c *fiber.Ctx) error {
	session, err := h.Auth.Session(c)
	if err != nil {
		return h.Auth.AuthErrorHandler(c, err)
	}

	res, err := h.Service.Logout(c.UserContext(), LogoutMessage{Session: session})
	if err != nil {
		return h.internal(c, "logout", err)
	}

	h.Auth.ClearSessionCookie(c)

	return c.JSON(fiber.Map{"message": res.Message})
}

// ChangePassword handles POST /password-reset for a logged in account
func (h *HTTPController) ChangePassword(c *fiber.Ctx) error {
	session, err := h.Auth.Session(c)
	if err != nil {
		return h.Auth.AuthErrorHandler(c, err)
	}

	payload := new(ChangePasswordForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.ChangePassword(c.UserContext(), ChangePasswordMessage{
		Session:            session,
		OldPassword:        payload.OldPassword,
		Password1:          payload.Password1,
		Password2:          payload.Password2,
		RequireOldPassword: true,
	})
	if err != nil {
		return h.internal(c, "change password", err)
	}

	return h.passwordChanged(c, res)
}

// SetPassword handles POST /settings/password
func (h *HTTPController) SetPassword(c *fiber.Ctx) error {
	session, err := h.Auth.Session(c)
	if err != nil {
		return h.Auth.AuthErrorHandler(c, err)
	}

	payload := new(ChangePasswordForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.SetPassword(c.UserContext(), SetPasswordMessage{
		Session:     session,
		OldPassword: payload.OldPassword,
		Password1:   payload.Password1,
		Password2:   payload.Password2,
	})
	if err != nil {
		return h.internal(c, "set password", err)
	}

	return h.passwordChanged(c, res)
}

// ForgotPassword handles POST /forgot-password
func (h *HTTPController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(EmailForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	res, err := h.Service.ForgotPassword(c.UserContext(), ForgotPasswordMessage{Email: payload.Email})
	if err != nil {
		return h.internal(c, "forgot password", err)
	}

	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	return c.JSON(fiber.Map{"message": res.Message})
}

// RestorePassword handles POST /restore-password/:ref/:token
func (h *HTTPController) RestorePassword(c *fiber.Ctx) error {
	payload := new(SetPasswordForm)
	if err := h.bind(c, payload); err != nil {
		return h.invalidBody(c, err)
	}

	session, _ := h.Auth.Session(c)

	res, err := h.Service.ConfirmPasswordReset(c.UserContext(), ConfirmPasswordResetMessage{
		Ref:       c.Params("ref"),
		Token:     c.Params("token"),
		Password1: payload.Password1,
		Password2: payload.Password2,
		Session:   session,
	})
	if err != nil {
		return h.internal(c, "restore password", err)
	}

	if res.InvalidLink {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": res.Message})
	}

	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	if session != nil {
		h.Auth.ClearSessionCookie(c)
	}

	return c.JSON(fiber.Map{"message": res.Message})
}

// Deactivate handles GET|POST /deactivate
func (h *HTTPController) Deactivate(c *fiber.Ctx) error {
	session, err := h.Auth.Session(c)
	if err != nil {
		return h.Auth.AuthErrorHandler(c, err)
	}

	res, err := h.Service.Deactivate(c.UserContext(), DeactivateMessage{
		Session: session,
		Reason:  c.FormValue("reason"),
	})
	if err != nil {
		return h.internal(c, "deactivate", err)
	}

	h.Auth.ClearSessionCookie(c)

	return c.JSON(fiber.Map{"message": res.Message})
}

// ShowSettings handles GET /settings
func (h *HTTPController) ShowSettings(c *fiber.Ctx) error {
	session, err := h.Auth.Session(c)
	if err != nil {
		return h.Auth.AuthErrorHandler(c, err)
	}

	account, err := h.Service.AccountForSession(c.UserContext(), session)
	if err != nil {
		return h.internal(c, "settings", err)
	}

	view := fiber.Map{
		"account":             account,
		"has_usable_password": account.HasUsablePassword(),
	}

	for _, provider := range h.Settings {
		extra, err := provider(c.UserContext(), account)
		if err != nil {
			return h.internal(c, "settings", err)
		}
		for k, v := range extra {
			view[k] = v
		}
	}

	return c.JSON(view)
}

func (h *HTTPController) passwordChanged(c *fiber.Ctx, res *PasswordChangeResponse) error {
	if !res.OK() {
		return h.fieldErrors(c, res.Errors)
	}

	// every session of the account is gone, the current one included
	h.Auth.ClearSessionCookie(c)

	return c.JSON(fiber.Map{"message": res.Message})
}

func (h *HTTPController) bind(c *fiber.Ctx, payload any) error {
	if err := c.BodyParser(payload); err != nil {
		return err
	}

	if h.Debug {
		h.Logger.Debug("%s %s payload:\n%s", c.Method(), c.Path(), print.MaybePrettyJSON(payload))
	}

	return nil
}

func (h *HTTPController) invalidBody(c *fiber.Ctx, err error) error {
	h.Logger.Warn("unable to parse request body for %s: %v", c.Path(), err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body."})
}

func (h *HTTPController) fieldErrors(c *fiber.Ctx, errs FieldErrors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"errors": errs.Messages()})
}

func (h *HTTPController) internal(c *fiber.Ctx, op string, err error) error {
	h.Logger.Error("%s failed: %v", op, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error."})
}
