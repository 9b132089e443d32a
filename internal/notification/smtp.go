package notification

import (
	"context"
	"fmt"
	"net/smtp"
)

// SMTPNotifier sends verification codes as plain email over SMTP.
type SMTPNotifier struct {
	host     string
	port     string
	user     string
	password string
	from     string
}

func NewSMTPNotifier(host, port, user, password string) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     user,
	}
}

func (n *SMTPNotifier) SendVerificationCode(_ context.Context, toEmail, code string) error {
	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 15 minutes.", code)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		n.from, toEmail, subject, body,
	))

	addr := n.host + ":" + n.port
	auth := smtp.PlainAuth("", n.user, n.password, n.host)

	if err := smtp.SendMail(addr, auth, n.from, []string{toEmail}, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}
