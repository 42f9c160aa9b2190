// Package mailer delivers transactional email over SMTP. Delivery is
// best-effort everywhere it is used; callers decide how a failure affects
// their own response.
package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	log "github.com/sirupsen/logrus"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(to, subject, body string) error
	SendWithReplyTo(to, replyTo, subject, body string) error
}

// SMTPSender sends mail through a configured SMTP relay.
type SMTPSender struct {
	Host     string // SMTP host.
	Port     int    // SMTP port.
	From     string // Envelope/From address.
	User     string // Optional auth user.
	Pass     string // Optional auth password.
	STARTTLS bool   // Force STARTTLS before auth.
}

// NewSMTPSender constructs an SMTP sender.
func NewSMTPSender(host string, port int, from, user, pass string, startTLS bool) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, STARTTLS: startTLS}
}

// Send delivers a plain-text message and logs the outcome.
func (s *SMTPSender) Send(to, subject, body string) error {
	return s.send(to, "", subject, body)
}

// SendWithReplyTo delivers a plain-text message with a Reply-To header.
func (s *SMTPSender) SendWithReplyTo(to, replyTo, subject, body string) error {
	return s.send(to, replyTo, subject, body)
}

func (s *SMTPSender) send(to, replyTo, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	if replyTo != "" {
		m.SetHeader("Reply-To", replyTo)
	}
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	if s.STARTTLS {
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}

	if errSend := d.DialAndSend(m); errSend != nil {
		log.WithError(errSend).WithField("to", to).Warn("mailer: smtp send failed")
		return fmt.Errorf("mailer: smtp send: %w", errSend)
	}
	log.WithField("to", to).Debug("mailer: smtp send ok")
	return nil
}
