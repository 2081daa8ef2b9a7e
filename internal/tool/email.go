package tool

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"hark/internal/config"
)

// prepareEmail only acknowledges the draft; the dispatcher surfaces it
// through the presentation layer and suspends the turn for review.
func prepareEmail(context.Context, Args) (string, error) {
	return "Email drafted. Please review before sending.", nil
}

// SendEmail delivers a reviewed draft over SMTP. It is called by the
// dispatcher once the presentation layer confirms the send.
func SendEmail(_ context.Context, svc config.EmailService, recipient, subject, body string) string {
	if !svc.Enabled {
		return "Email service is not enabled in settings."
	}
	if svc.SMTPServer == "" || svc.SMTPPort == 0 || svc.Address == "" || svc.AppPassword == "" {
		return "Email configuration is incomplete in settings."
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || !strings.Contains(recipient, "@") {
		return "That doesn't look like a valid email address."
	}

	message := strings.Join([]string{
		"From: " + svc.Address,
		"To: " + recipient,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", svc.SMTPServer, svc.SMTPPort)
	auth := smtp.PlainAuth("", svc.Address, svc.AppPassword, svc.SMTPServer)
	if err := smtp.SendMail(addr, auth, svc.Address, []string{recipient}, []byte(message)); err != nil {
		return "Failed to send the email."
	}
	return "Email sent successfully."
}
