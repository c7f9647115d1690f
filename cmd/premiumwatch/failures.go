package main

import (
	"context"

	"github.com/rewired-gh/premiumwatch/internal/logger"
	"github.com/rewired-gh/premiumwatch/internal/monitor"
)

type opsNotifier interface {
	SendError(ctx context.Context, err error) error
	SendRecovery(ctx context.Context, failureCount int) error
}

// failureTracker reports the first skipped poll of a streak and the recovery
// that ends it. Closed-market steps neither extend nor end a streak.
// A nil tracker ignores every action.
type failureTracker struct {
	ops                 opsNotifier
	consecutiveFailures int
}

func newFailureTracker(ops opsNotifier) *failureTracker {
	return &failureTracker{ops: ops}
}

func (f *failureTracker) observe(ctx context.Context, act monitor.Action) {
	if f == nil {
		return
	}

	switch act.Kind {
	case monitor.ActionSkipped:
		f.consecutiveFailures++
		if f.consecutiveFailures == 1 {
			if err := f.ops.SendError(ctx, act.Err); err != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", err)
			}
		}
	case monitor.ActionPolled, monitor.ActionAlerted:
		if f.consecutiveFailures > 0 {
			if err := f.ops.SendRecovery(ctx, f.consecutiveFailures); err != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", err)
			}
		}
		f.consecutiveFailures = 0
	}
}
