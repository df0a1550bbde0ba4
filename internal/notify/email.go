// Package notify delivers offer lifecycle email: deadline reminders,
// expiry notices, application confirmations and question traffic.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"offerportal/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers one message to one recipient. Implemented by EmailService
// and mocked in tests.
type Sender interface {
	Send(ctx context.Context, to, subject, templateName string, data any) error
}

type EmailService struct {
	cfg       config.SMTPConfig
	templates *template.Template
	log       zerolog.Logger
}

func NewEmailService(cfg config.SMTPConfig, log zerolog.Logger) (*EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("notify.NewEmailService: %w", err)
	}
	return &EmailService{
		cfg:       cfg,
		templates: tmpl,
		log:       log.With().Str("component", "email").Logger(),
	}, nil
}

func (s *EmailService) Send(ctx context.Context, to, subject, templateName string, data any) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName+".html", data); err != nil {
		return fmt.Errorf("notify.EmailService.Send: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notify.EmailService.Send: %w", err)
	}
	msg := s.buildMessage(to, subject, body.String())

	var err error
	if s.cfg.SMTPTLS {
		err = s.sendTLS(to, msg)
	} else {
		err = s.sendPlain(to, msg)
	}
	if err != nil {
		return fmt.Errorf("notify.EmailService.Send: %w", err)
	}
	s.log.Debug().Str("to", to).Str("template", templateName).Msg("email sent")
	return nil
}

func (s *EmailService) buildMessage(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.SMTPFrom)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (s *EmailService) addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
}

func (s *EmailService) auth() smtp.Auth {
	if s.cfg.SMTPUser == "" {
		return nil
	}
	return smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
}

func (s *EmailService) sendPlain(to string, msg []byte) error {
	dialer := net.Dialer{Timeout: s.cfg.SendTimeout}
	conn, err := dialer.Dial("tcp", s.addr())
	if err != nil {
		return err
	}
	defer conn.Close()

	if s.cfg.SendTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.cfg.SendTimeout)); err != nil {
			return err
		}
	}
	return s.deliver(conn, to, msg)
}

func (s *EmailService) sendTLS(to string, msg []byte) error {
	conn, err := tls.DialWithDialer(
		&net.Dialer{Timeout: s.cfg.SendTimeout},
		"tcp", s.addr(),
		&tls.Config{ServerName: s.cfg.SMTPHost},
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	return s.deliver(conn, to, msg)
}

func (s *EmailService) deliver(conn net.Conn, to string, msg []byte) error {
	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth := s.auth(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}
