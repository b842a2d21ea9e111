package notify

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Mailer sends out-of-band operator alerts. Its one job today is flagging
// quota-application failures, since those are financial-consistency gaps that
// need manual reconciliation.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

func NewMailer(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

func (m *Mailer) QuotaApplyFailed(userID string, messageID int64, amount int64, cause string) error {
	subject := fmt.Sprintf("Quota reconciliation needed: message %d", messageID)
	body := fmt.Sprintf(
		"Quota debit failed after a successful send.\n\nUser: %s\nMessage: %d\nAmount (segments): %d\nCause: %s\n",
		userID, messageID, amount, cause)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, "", "")
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}

	m.logger.Info("Operator alert sent",
		zap.String("userID", userID),
		zap.Int64("messageID", messageID))

	return nil
}
