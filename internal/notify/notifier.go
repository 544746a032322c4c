// Package notify delivers operator alerts over one or more channels
// (Telegram, Discord). Deliveries can be filtered by event type so operators
// receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event types emitted by the engine.
const (
	EventArbitrationOpened = "arbitration_opened"
	EventClaimApproved     = "claim_approved"
	EventClaimRejected     = "claim_rejected"
	EventLowReserve        = "low_reserve"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns an identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It holds a set
// of allowed event types; Notify forwards only messages whose event type is
// in the set, while NotifyAll bypasses the filter.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// named in the events slice are forwarded by Notify; an empty slice allows
// every event type.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll sends a notification to all senders regardless of event type.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch fans the notification out to every sender. Individual sender
// failures are collected into one combined error so a broken channel does
// not prevent delivery to the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
