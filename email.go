package notesauth

import "log"

// EmailSender interface allows applications to provide their own email
// delivery implementation (SendGrid, SES, SMTP, ...)
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendEmail(to, subject, body string) error {
	log.Printf("\n=== EMAIL ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Printf("Body: %s", body)
	log.Printf("=============\n")
	return nil
}
