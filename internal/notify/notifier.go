// Package notify delivers premium alerts over every configured channel.
// A failing channel never prevents the remaining channels from being tried.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/models"
)

// Sender is implemented by each notification channel.
type Sender interface {
	Send(ctx context.Context, alert models.Alert) error
	// Name returns a short channel identifier such as "whatsapp".
	Name() string
}

// Report records the outcome of one dispatch.
type Report struct {
	Attempted []string
	Failed    map[string]error
}

// Delivered reports whether at least one channel succeeded.
func (r Report) Delivered() bool {
	return len(r.Attempted) > len(r.Failed)
}

// Err joins the per-channel failures, or returns nil if every channel succeeded.
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, name := range r.Attempted {
		if err, ok := r.Failed[name]; ok {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher fans an alert out to its senders in order.
type Dispatcher struct {
	senders []Sender
}

// NewDispatcher creates a dispatcher for the given senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	return &Dispatcher{senders: senders}
}

// Channels lists the configured sender names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.senders))
	for i, s := range d.senders {
		names[i] = s.Name()
	}
	return names
}

// Dispatch attempts every sender. Failures are logged and collected, each
// wrapped in models.ErrDispatchFailure.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) Report {
	report := Report{Failed: make(map[string]error)}

	for _, s := range d.senders {
		name := s.Name()
		report.Attempted = append(report.Attempted, name)

		if err := s.Send(ctx, alert); err != nil {
			wrapped := fmt.Errorf("%s: %w: %v", name, models.ErrDispatchFailure, err)
			report.Failed[name] = wrapped
			logger.Error("%s notification failed: %v", name, err)
			continue
		}
		logger.Info("%s notification sent", name)
	}

	return report
}
