package session

import (
	"context"
	"log/slog"
	"time"
)

// Watchdog checks lastFrameTimestamp at coarse intervals; after too many
// consecutive misses while the session is active it transitions the
// controller to FAILED and invokes onFailed (in this repo, publishing a
// FAILED lifecycle event on the events stream for the simulator/host to
// observe and restart the session).
type Watchdog struct {
	controller    *Controller
	interval      time.Duration
	stallAfter    time.Duration
	maxMisses     int
	onFailed      func(sessionID int64)

	misses int
}

// NewWatchdog builds a Watchdog polling the controller at interval,
// declaring a stall after stallAfter with no frames, and failing the
// session after maxMisses consecutive stalls.
func NewWatchdog(controller *Controller, interval, stallAfter time.Duration, maxMisses int, onFailed func(sessionID int64)) *Watchdog {
	return &Watchdog{controller: controller, interval: interval, stallAfter: stallAfter, maxMisses: maxMisses, onFailed: onFailed}
}

// Run blocks, polling until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.check(now)
		}
	}
}

func (w *Watchdog) check(now time.Time) {
	if !w.controller.active.Load() {
		w.misses = 0
		return
	}

	diag := w.controller.Snapshot()
	if diag.LastFrameAt.IsZero() || now.Sub(diag.LastFrameAt) <= w.stallAfter {
		w.misses = 0
		return
	}

	w.controller.UpdateStallReason("NO_FRAMES")
	w.misses++
	slog.Warn("scan session stall detected", "session_id", w.controller.CurrentID(), "misses", w.misses)

	if w.misses >= w.maxMisses {
		id := w.controller.CurrentID()
		w.controller.UpdateLifecycle("FAILED")
		w.controller.StopSession()
		w.misses = 0
		if w.onFailed != nil {
			w.onFailed(id)
		}
	}
}
