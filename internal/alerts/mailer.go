package alerts

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

type smtpConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

var mailCfg smtpConfig

// ConfigureMailerFromEnv loads SMTP configuration from environment variables.
// Required: SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM
func ConfigureMailerFromEnv() {
	mailCfg = smtpConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// SendEmail sends a plain text email over SMTP. Without configuration the
// message is logged instead, which keeps dev environments working.
func SendEmail(to, subject, body string) error {
	if mailCfg.Host == "" {
		ConfigureMailerFromEnv()
	}
	if mailCfg.Host == "" || mailCfg.Port == "" {
		log.Printf("[mail] (unconfigured) to=%s subject=%q", to, subject)
		return nil
	}

	addr := mailCfg.Host + ":" + mailCfg.Port
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", mailCfg.From, to, subject, body)

	auth := smtp.PlainAuth("", mailCfg.Username, mailCfg.Password, mailCfg.Host)
	return smtp.SendMail(addr, auth, mailCfg.From, []string{to}, []byte(msg))
}
