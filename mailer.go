package magiclink

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

const loginLinkSubject = "Your sign-in link for Murweh LGA tools"

// Mailer delivers login links. Delivery is fire-and-forget from the core's
// perspective: a returned error fails the current attempt but nothing is
// retried here.
type Mailer interface {
	SendLoginLink(ctx context.Context, to, url string, expiryDays int) error
}

// SMTPMailer sends login links over SMTP. The message body comes from a
// django-style template when one is configured, otherwise from the built-in
// plain-text message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	engine *django.Engine
	view   string
	logger Logger
}

// NewSMTPMailer builds a mailer for the given SMTP endpoint.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: defLogger{},
	}
}

// WithLogger overrides the default logger.
func (m *SMTPMailer) WithLogger(logger Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithTemplates loads a template directory; view is the template name
// (without extension) rendered for the login-link body. Render context:
// url, expiry_days.
func (m *SMTPMailer) WithTemplates(dir, view string) (*SMTPMailer, error) {
	// The engine's loader panics on a missing directory, so check first.
	if info, err := os.Stat(dir); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	} else if !info.IsDir() {
		return nil, goerrors.New("mail template path is not a directory", goerrors.CategoryInternal)
	}

	engine := django.New(dir, ".txt")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}
	m.engine = engine
	m.view = view
	return m, nil
}

// SendLoginLink sends the magic-link email.
func (m *SMTPMailer) SendLoginLink(_ context.Context, to, url string, expiryDays int) error {
	body, err := m.renderBody(url, expiryDays)
	if err != nil {
		m.logger.Warn("mail template render failed, using fallback body", "error", err)
		body = loginLinkBody(url, expiryDays)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", loginLinkSubject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send login link email")
	}

	return nil
}

func (m *SMTPMailer) renderBody(url string, expiryDays int) (string, error) {
	if m.engine == nil {
		return loginLinkBody(url, expiryDays), nil
	}

	var buf bytes.Buffer
	err := m.engine.Render(&buf, m.view, map[string]any{
		"url":         url,
		"expiry_days": expiryDays,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

// loginLinkBody is the default message, matching the text staff have always
// received.
func loginLinkBody(url string, expiryDays int) string {
	return fmt.Sprintf(
		"Hello,\n\n"+
			"Use the link below to sign in. It will remain valid for %d days.\n\n"+
			"%s\n\n"+
			"If you did not request this link you can ignore this email.",
		expiryDays,
		url,
	)
}
