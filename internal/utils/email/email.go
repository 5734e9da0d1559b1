package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// ScoreUpdateMessage builds the notification sent when a profile's credit score changes
func (s *Sender) ScoreUpdateMessage(to, name string, previous, current int) *email.Email {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Your credit score has been updated"

	body := fmt.Sprintf("Dear %s,\n\n", name)
	switch {
	case previous == 0:
		body += fmt.Sprintf("Your first credit score has been computed: %d.\n", current)
	case current > previous:
		body += fmt.Sprintf("Your credit score went up from %d to %d.\n", previous, current)
	default:
		body += fmt.Sprintf("Your credit score went down from %d to %d.\n"+
			"Paying at least the minimum due before each due date helps restore it.\n", previous, current)
	}
	body += "\nBest regards,\nCredit Scoring Service"
	e.Text = []byte(body)
	return e
}

// SendScoreUpdate notifies a profile owner that their score changed
func (s *Sender) SendScoreUpdate(to, name string, previous, current int) error {
	if to == "" {
		return fmt.Errorf("no recipient address")
	}
	e := s.ScoreUpdateMessage(to, name, previous, current)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
