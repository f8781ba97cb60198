package config

import (
	"github.com/jinzhu/copier"
	"github.com/tendant/simple-delegation/pkg/notification"
)

// EmailConfig holds SMTP configuration for the event email notifier
type EmailConfig struct {
	Enabled  bool     `env:"EMAIL_ENABLED" env-default:"false"`
	Host     string   `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16   `env:"EMAIL_PORT" env-default:"1025"`
	Username string   `env:"EMAIL_USERNAME"`
	Password string   `env:"EMAIL_PASSWORD"`
	From     string   `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	To       []string `env:"EMAIL_TO" env-separator:","`
	TLS      bool     `env:"EMAIL_TLS" env-default:"false"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() (notification.SMTPConfig, error) {
	smtp := notification.SMTPConfig{}
	if err := copier.Copy(&smtp, &e); err != nil {
		return notification.SMTPConfig{}, err
	}
	smtp.Port = int(e.Port)
	return smtp, nil
}

// Validator checks the notifier settings when email is enabled
func (e EmailConfig) Validator() Validator {
	return func() ValidationErrors {
		if !e.Enabled {
			return nil
		}
		return CollectErrors(
			RequireNonEmpty("EMAIL_HOST", e.Host),
			RequireValidPort("EMAIL_PORT", e.Port),
			RequireValidEmail("EMAIL_FROM", e.From),
			RequireNonEmptySlice("EMAIL_TO", e.To),
		)
	}
}
