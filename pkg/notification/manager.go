package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// NotificationSystem names a delivery channel (log, email, ...)
type NotificationSystem string

const (
	LogSystem   NotificationSystem = "log"
	EmailSystem NotificationSystem = "email"
)

// NotificationManager forwards events from an EventLog to registered notifiers
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	lastSeq   uint64
	mu        sync.RWMutex
}

// NotificationManagerOption is a function that configures a NotificationManager
type NotificationManagerOption func(*NotificationManager) error

// WithLog adds a notifier writing events to the given logger
func WithLog(logger *slog.Logger) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(LogSystem, NewLogNotifier(logger))
		return nil
	}
}

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
	}
}

// NewNotificationManagerWithOptions creates a new notification manager with the provided options
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := NewNotificationManager()
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}

// RegisterNotifier registers a notifier for a specific system, replacing any previous one.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.notifiers[system] = notifier
}

// Systems returns the registered systems in name order
func (nm *NotificationManager) Systems() []NotificationSystem {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	systems := make([]NotificationSystem, 0, len(nm.notifiers))
	for system := range nm.notifiers {
		systems = append(systems, system)
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i] < systems[j] })
	return systems
}

// Dispatch sends one event to every registered notifier. A failing notifier
// does not stop delivery to the others; all failures are returned together.
func (nm *NotificationManager) Dispatch(ctx context.Context, event Event) error {
	var result *multierror.Error
	for _, system := range nm.Systems() {
		nm.mu.RLock()
		notifier := nm.notifiers[system]
		nm.mu.RUnlock()

		if err := notifier.Notify(ctx, event); err != nil {
			slog.Error("Notifier failed", "system", system, "seq", event.Seq, "err", err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", system, err))
		}
	}
	return result.ErrorOrNil()
}

// Run forwards events from the log until ctx is done. Events that were
// dropped from live delivery are recovered from the log by sequence number.
func (nm *NotificationManager) Run(ctx context.Context, log *EventLog) {
	events, cancel := log.Subscribe(0)
	defer cancel()

	nm.mu.Lock()
	nm.lastSeq = log.LastSeq()
	nm.mu.Unlock()

	slog.Info("Notification manager started", "systems", nm.Systems(), "from_seq", nm.LastSeq())
	for {
		select {
		case <-ctx.Done():
			slog.Info("Notification manager stopped", "last_seq", nm.LastSeq())
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			nm.catchUp(ctx, log)
		}
	}
}

// LastSeq returns the sequence number of the last event Run forwarded
func (nm *NotificationManager) LastSeq() uint64 {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return nm.lastSeq
}

func (nm *NotificationManager) catchUp(ctx context.Context, log *EventLog) {
	for _, event := range log.List(nm.LastSeq(), 0) {
		// delivery errors are already logged per notifier
		_ = nm.Dispatch(ctx, event)

		nm.mu.Lock()
		nm.lastSeq = event.Seq
		nm.mu.Unlock()
	}
}
