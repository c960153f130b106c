// Package reservation reacts to reservation status changes by notifying the
// customer over SMS.
package reservation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xenking/storefront-relay/internal/sms"
)

// ChangeEvent is one row-level UPDATE delivered by the change feed. Empty
// strings stand for absent fields.
type ChangeEvent struct {
	ID        string
	OldStatus string
	NewStatus string
	Phone     string
}

// Dispatcher sends one SMS, reporting the outcome without raising.
type Dispatcher interface {
	Send(ctx context.Context, to, message string) sms.Result
}

// DefaultMessages maps tracked reservation statuses to customer-facing SMS
// texts. The key set defines which transitions trigger a notification.
func DefaultMessages() map[string]string {
	return map[string]string{
		"confirmed": "Your reservation has been confirmed. We look forward to seeing you!",
		"completed": "Thank you for dining with us. We hope to see you again soon!",
		"cancelled": "Your reservation has been cancelled. Contact us if this is unexpected.",
	}
}

// Reactor consumes reservation change events and conditionally dispatches
// notifications. It never fails the surrounding subscription: every event is
// handled inside its own panic containment, and dispatch failures are logged,
// not propagated.
type Reactor struct {
	dispatcher Dispatcher
	messages   map[string]string
	lg         *zap.Logger
}

// NewReactor creates a Reactor. messages may be nil, in which case
// DefaultMessages is used.
func NewReactor(dispatcher Dispatcher, messages map[string]string, lg *zap.Logger) *Reactor {
	if len(messages) == 0 {
		messages = DefaultMessages()
	}
	return &Reactor{
		dispatcher: dispatcher,
		messages:   messages,
		lg:         lg,
	}
}

// Run consumes events until the channel closes or ctx is cancelled.
func (r *Reactor) Run(ctx context.Context, events <-chan ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle processes a single change event. Exported for direct use in tests
// and by alternative feed transports.
func (r *Reactor) Handle(ctx context.Context, ev ChangeEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.lg.Error("panic while handling reservation change",
				zap.String("reservation_id", ev.ID),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
		}
	}()

	newStatus := canonicalStatus(ev.NewStatus)
	message, tracked := r.messages[newStatus]
	if newStatus == "" || !tracked {
		r.lg.Debug("ignoring untracked reservation status",
			zap.String("reservation_id", ev.ID),
			zap.String("status", ev.NewStatus),
		)
		return
	}

	if canonicalStatus(ev.OldStatus) == newStatus {
		return
	}

	if strings.TrimSpace(ev.Phone) == "" {
		r.lg.Warn("reservation status changed but no phone number on record",
			zap.String("reservation_id", ev.ID),
			zap.String("status", newStatus),
		)
		return
	}

	res := r.dispatcher.Send(ctx, ev.Phone, message)
	if !res.Success {
		r.lg.Warn("reservation notification failed",
			zap.String("reservation_id", ev.ID),
			zap.String("status", newStatus),
			zap.String("error", res.Error),
		)
		return
	}

	r.lg.Info("reservation notification sent",
		zap.String("reservation_id", ev.ID),
		zap.String("status", newStatus),
	)
}

func canonicalStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
