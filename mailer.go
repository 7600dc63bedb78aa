package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	SubjectProfileActivation = "Profile activation"
	SubjectRestorePassword   = "Restore password"

	TemplateActivateProfile = "activate_profile"
	TemplateRestorePassword = "restore_password_email"
)

// MailerRoutes are the public paths linked from outgoing mail
type MailerRoutes struct {
	Activate        string
	RestorePassword string
}

// DefaultMailerRoutes matches the routes registered by the HTTP controller
func DefaultMailerRoutes() MailerRoutes {
	return MailerRoutes{
		Activate:        "/accounts/activate/%s/",
		RestorePassword: "/accounts/restore-password/%s/%s/",
	}
}

// MailerOption configures a Mailer
type MailerOption func(*Mailer)

// WithMailerLogger overrides the logger
func WithMailerLogger(logger Logger) MailerOption {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMailerRoutes overrides the link paths
func WithMailerRoutes(routes MailerRoutes) MailerOption {
	return func(m *Mailer) {
		m.routes = routes
	}
}

// WithMailerActivationWindow sets the window shown in the activation mail
func WithMailerActivationWindow(window time.Duration) MailerOption {
	return func(m *Mailer) {
		m.activationWindow = window
	}
}

// Mailer composes account mail and hands it to a MailSink
type Mailer struct {
	sink             MailSink
	renderer         Renderer
	baseURL          string
	routes           MailerRoutes
	activationWindow time.Duration
	logger           Logger
}

var _ Notifier = (*Mailer)(nil)

// NewMailer returns a Mailer rendering with renderer and linking to baseURL
func NewMailer(sink MailSink, renderer Renderer, baseURL string, opts ...MailerOption) *Mailer {
	m := &Mailer{
		sink:             sink,
		renderer:         renderer,
		baseURL:          strings.TrimRight(baseURL, "/"),
		routes:           DefaultMailerRoutes(),
		activationWindow: DefaultActivationWindow,
		logger:           defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// ActivationURL is the absolute link for an activation code
func (m *Mailer) ActivationURL(code string) string {
	return m.baseURL + fmt.Sprintf(m.routes.Activate, code)
}

// RestorePasswordURL is the absolute link for a reset token
func (m *Mailer) RestorePasswordURL(ref, token string) string {
	return m.baseURL + fmt.Sprintf(m.routes.RestorePassword, ref, token)
}

// SendActivation enqueues the activation mail, failures are only logged
func (m *Mailer) SendActivation(_ context.Context, account *Account, code string) {
	m.send(account.Email, SubjectProfileActivation, TemplateActivateProfile, map[string]any{
		"email":          account.Email,
		"uri":            m.ActivationURL(code),
		"code":           code,
		"expire_minutes": int(m.activationWindow.Minutes()),
	})
}

// SendPasswordReset enqueues the restore password mail, failures are only logged
func (m *Mailer) SendPasswordReset(_ context.Context, account *Account, ref, token string) {
	m.send(account.Email, SubjectRestorePassword, TemplateRestorePassword, map[string]any{
		"email": account.Email,
		"uri":   m.RestorePasswordURL(ref, token),
	})
}

func (m *Mailer) send(to, subject, template string, data map[string]any) {
	if m.sink == nil {
		m.logger.Warn("mailer has no sink, dropping %q to %s", subject, to)
		return
	}

	body, err := m.renderer.Render(template, data)
	if err != nil {
		m.logger.Error("mailer failed to render %s for %s: %v", template, to, err)
		return
	}

	m.sink.Enqueue(to, subject, body)
}
