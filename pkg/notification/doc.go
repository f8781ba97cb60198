// Package notification carries the registry's Delegated and Revoked events.
//
// The EventLog is the append-only record the registry writes to; it never
// reads it back. A NotificationManager subscribes to the log and forwards
// every event, in sequence order, to the registered notifiers (structured
// log, email).
//
// # Basic Usage
//
//	events := notification.NewEventLog()
//	nm, err := notification.NewNotificationManagerWithOptions(
//		notification.WithLog(slog.Default()),
//		notification.WithSMTP(smtpConfig),
//	)
//	go nm.Run(ctx, events)
//
//	// Readers page through the log by sequence number
//	page := events.List(lastSeen, 100)
package notification
