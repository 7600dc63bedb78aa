package mail

import (
	"context"
	"crypto/tls"
	"net/smtp"
	"time"

	"github.com/knadh/smtppool"
	"github.com/pkg/errors"
)

// SMTPConfig configures the SMTP connection pool
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	MaxConns      int
	IdleTimeout   time.Duration
	WaitTimeout   time.Duration
	TLSSkipVerify bool
}

// SMTPSender delivers mail through a pooled SMTP connection
type SMTPSender struct {
	pool *smtppool.Pool
	from string
}

// NewSMTPSender opens the SMTP pool
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        maxConns,
		IdleTimeout:     orDefault(cfg.IdleTimeout, 15*time.Second),
		PoolWaitTimeout: orDefault(cfg.WaitTimeout, 10*time.Second),
		TLSConfig: &tls.Config{
			InsecureSkipVerify: cfg.TLSSkipVerify,
			ServerName:         cfg.Host,
		},
		Auth: auth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create smtp pool")
	}

	return &SMTPSender{pool: pool, from: cfg.From}, nil
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := s.pool.Send(smtppool.Email{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    []byte(msg.HTML),
	})
	if err != nil {
		return errors.Wrapf(err, "smtp send to %s", msg.To)
	}
	return nil
}

// Close shuts the pool down
func (s *SMTPSender) Close() {
	s.pool.Close()
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
