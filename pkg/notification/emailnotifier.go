package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
	To       []string
}

const eventSubjectTemplate = `{{.Kind}} {{.Collection.Hex}}#{{.TokenID}}`

const eventBodyTemplate = `Event:      {{.Kind}} (seq {{.Seq}})
Collection: {{.Collection.Hex}}
Token ID:   {{.TokenID}}
{{- if eq .Kind "Delegated"}}
Delegate:   {{.Delegate.Hex}}
Expiry:     {{.Expiry}}
{{- end}}
Emitted at: {{.EmittedAt.Format "2006-01-02T15:04:05Z07:00"}}
`

// EmailNotifier mails every event to a fixed list of operator addresses
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
	subject    *template.Template
	body       *template.Template
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	if len(config.To) == 0 {
		return nil, fmt.Errorf("email notifier requires at least one recipient")
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		slog.Info("Adding authentication", "user", config.Username)
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		slog.Info("Using NoTLS policy")
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	} else {
		slog.Info("Using TLS Mandatory policy")
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{ServerName: config.Host, MinVersion: tls.VersionTLS12}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{
		SMTPConfig: config,
		client:     client,
		subject:    template.Must(template.New("subject").Parse(eventSubjectTemplate)),
		body:       template.Must(template.New("body").Parse(eventBodyTemplate)),
	}, nil
}

// Render returns the subject and plain text body for an event
func (e *EmailNotifier) Render(event Event) (string, string, error) {
	var subject, body bytes.Buffer
	if err := e.subject.Execute(&subject, event); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := e.body.Execute(&body, event); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject.String(), body.String(), nil
}

func (e *EmailNotifier) Notify(ctx context.Context, event Event) error {
	subject, body, err := e.Render(event)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := msg.To(e.SMTPConfig.To...); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("Failed to send email", "err", err, "seq", event.Seq)
		return err
	}

	slog.Info("Event email sent", "seq", event.Seq, "to", e.SMTPConfig.To)
	return nil
}
