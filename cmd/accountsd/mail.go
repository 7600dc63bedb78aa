package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
	"github.com/goliatone/go-accounts/mail"
)

func newMailSender(lc fx.Lifecycle, cfg *config.Config, z *zap.Logger) (mail.Sender, error) {
	if cfg.Mail.Transport != config.TransportSMTP {
		return mail.NewLogSender(z.Named("mail")), nil
	}

	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:          cfg.Mail.SMTP.Host,
		Port:          cfg.Mail.SMTP.Port,
		Username:      cfg.Mail.SMTP.Username,
		Password:      cfg.Mail.SMTP.Password,
		From:          cfg.Mail.From,
		MaxConns:      cfg.Mail.SMTP.MaxConns,
		IdleTimeout:   cfg.Mail.SMTP.IdleTimeout,
		WaitTimeout:   cfg.Mail.SMTP.WaitTimeout,
		TLSSkipVerify: cfg.Mail.SMTP.TLSSkipVerify,
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sender.Close()
			return nil
		},
	})

	return sender, nil
}

func newMailQueue(lc fx.Lifecycle, cfg *config.Config, sender mail.Sender, z *zap.Logger) *mail.Queue {
	queue := mail.NewQueue(sender,
		mail.WithWorkers(cfg.Mail.Workers),
		mail.WithQueueSize(cfg.Mail.QueueSize),
		mail.WithMaxAttempts(cfg.Mail.MaxAttempts),
		mail.WithRetryDelay(cfg.Mail.RetryDelay),
		mail.WithSendTimeout(cfg.Mail.SendTimeout),
		mail.WithLogger(z.Named("mail.queue")),
	)

	lc.Append(fx.Hook{
		OnStart: queue.Start,
		OnStop:  queue.Stop,
	})

	return queue
}

func newRenderer() (*mail.TemplateRenderer, error) {
	return mail.NewTemplateRenderer()
}

func newMailer(cfg *config.Config, queue *mail.Queue, renderer *mail.TemplateRenderer, logger accounts.Logger) *accounts.Mailer {
	return accounts.NewMailer(queue, renderer, cfg.App.BaseURL,
		accounts.WithMailerLogger(logger),
		accounts.WithMailerActivationWindow(cfg.Accounts.ActivationWindow),
	)
}
