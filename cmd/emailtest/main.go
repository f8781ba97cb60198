package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-delegation/pkg/asset"
	"github.com/tendant/simple-delegation/pkg/config"
	"github.com/tendant/simple-delegation/pkg/notification"
)

// Sends one sample Delegated event through the email notifier using the
// registry's EMAIL_* settings, to check SMTP delivery before enabling it.
func main() {
	cfg := config.EmailConfig{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	cfg.Enabled = true
	if err := config.Validate(cfg.Validator()); err != nil {
		slog.Error("Invalid email configuration", "error", err)
		os.Exit(1)
	}

	smtpConfig, err := cfg.ToSMTPConfig()
	if err != nil {
		slog.Error("Failed to map email configuration", "error", err)
		os.Exit(1)
	}
	notifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		slog.Error("Failed to create email notifier", "error", err)
		os.Exit(1)
	}

	sample := notification.NewDelegatedEvent(
		asset.New(common.HexToAddress("0x00000000000000000000000000000000000000aa"), 0),
		common.HexToAddress("0x00000000000000000000000000000000000000b0"),
		uint64(time.Now().Add(time.Hour).Unix()),
	)
	sample.Seq = 1
	sample.EmittedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := notifier.Notify(ctx, sample); err != nil {
		slog.Error("Failed to send test email", "error", err)
		os.Exit(1)
	}

	fmt.Println("Email sent successfully!")
}
