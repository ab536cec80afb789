// Package session owns the scan session lifecycle: a monotonically
// increasing session id plus an active flag, so in-flight callbacks from a
// stale session can self-cancel instead of racing a new one.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Diagnostics is the rate-limited, per-field state read by the watchdog
// and passed to the OnChange callback.
type Diagnostics struct {
	Bound            bool
	AnalysisAttached bool
	AnalysisFlowing  bool
	StallReason      string
	RecoveryAttempts int
	LastFrameAt      time.Time
	LastBBoxAt       time.Time
	FPS              float64
	Lifecycle        string
}

type fieldWrite struct {
	last time.Time
}

// Controller owns the session id and its diagnostics.
type Controller struct {
	id     int64
	active atomic.Bool

	mu          sync.Mutex
	diagnostics Diagnostics
	fieldWrites map[string]fieldWrite
	rateLimit   time.Duration

	onChange func(Diagnostics)
}

// NewController builds a Controller with the given diagnostics rate limit
// (design default 1s).
func NewController(rateLimit time.Duration) *Controller {
	return &Controller{fieldWrites: map[string]fieldWrite{}, rateLimit: rateLimit}
}

// OnChange registers a callback invoked whenever a rate-limited diagnostics
// update actually applies (cmd/worker uses it to update the
// active-sessions gauge).
func (c *Controller) OnChange(fn func(Diagnostics)) {
	c.onChange = fn
}

// StartSession increments the session id and marks it active, returning
// the new id.
func (c *Controller) StartSession() int64 {
	id := atomic.AddInt64(&c.id, 1)
	c.active.Store(true)
	c.updateField("lifecycle", func(d *Diagnostics) { d.Lifecycle = "starting" }, true)
	return id
}

// StopSession clears the active flag but preserves the current id, so
// in-flight callbacks captured at dispatch time can still self-cancel via
// IsSessionValid.
func (c *Controller) StopSession() {
	c.active.Store(false)
	c.updateField("lifecycle", func(d *Diagnostics) { d.Lifecycle = "stopped" }, true)
}

// CurrentID returns the current session id (valid whether or not active).
func (c *Controller) CurrentID() int64 {
	return atomic.LoadInt64(&c.id)
}

// IsSessionValid reports whether id is still the current session id and
// the session is active. Callbacks should capture id at dispatch time and
// call this on resume, dropping results on a mismatch (SessionMismatch).
func (c *Controller) IsSessionValid(id int64) bool {
	return id == c.CurrentID() && c.active.Load()
}

// UpdateBound, UpdateAnalysisAttached, etc. are rate-limited per-field
// diagnostics setters; monotone lifecycle transitions bypass the rate
// limit (force=true).
func (c *Controller) UpdateBound(v bool) {
	c.updateField("bound", func(d *Diagnostics) { d.Bound = v }, false)
}

func (c *Controller) UpdateAnalysisAttached(v bool) {
	c.updateField("analysis_attached", func(d *Diagnostics) { d.AnalysisAttached = v }, false)
}

func (c *Controller) UpdateAnalysisFlowing(v bool) {
	c.updateField("analysis_flowing", func(d *Diagnostics) { d.AnalysisFlowing = v }, false)
}

func (c *Controller) UpdateStallReason(reason string) {
	c.updateField("stall_reason", func(d *Diagnostics) { d.StallReason = reason }, true)
}

func (c *Controller) UpdateLifecycle(label string) {
	c.updateField("lifecycle", func(d *Diagnostics) { d.Lifecycle = label }, true)
}

func (c *Controller) RecordFrame(now time.Time, fps float64) {
	c.updateField("frame", func(d *Diagnostics) { d.LastFrameAt = now; d.FPS = fps }, false)
}

func (c *Controller) RecordBBox(now time.Time) {
	c.updateField("bbox", func(d *Diagnostics) { d.LastBBoxAt = now }, false)
}

func (c *Controller) IncrementRecoveryAttempts() {
	c.updateField("recovery", func(d *Diagnostics) { d.RecoveryAttempts++ }, true)
}

func (c *Controller) Snapshot() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diagnostics
}

func (c *Controller) updateField(field string, apply func(*Diagnostics), force bool) {
	c.mu.Lock()
	now := time.Now()
	if !force {
		if fw, ok := c.fieldWrites[field]; ok && now.Sub(fw.last) < c.rateLimit {
			c.mu.Unlock()
			return
		}
	}
	c.fieldWrites[field] = fieldWrite{last: now}
	apply(&c.diagnostics)
	snapshot := c.diagnostics
	cb := c.onChange
	c.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}
