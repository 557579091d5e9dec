package notifications

import (
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/fablab/fablab-registration/pkg/logger"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

// SMTPSender sends email via unauthenticated SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

func NewSMTPSender(host string, port string, from string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	if from == "" {
		from = "no-reply@fablab.local"
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg))
}

// LogSender only logs messages. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(to string, subject string, body string) error {
	logger.WithComponent("notifications").WithFields(map[string]interface{}{
		"to":      to,
		"subject": subject,
	}).Info("SMTP not configured, email logged instead of sent")
	return nil
}

// NewSender picks the SMTP sender when a host is configured.
func NewSender(host, port, from string) Sender {
	if strings.TrimSpace(host) == "" {
		return LogSender{}
	}
	return NewSMTPSender(host, port, from)
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		mime.QEncoding.Encode("utf-8", subject),
		body,
	)
}
