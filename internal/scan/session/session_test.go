package session

import (
	"testing"
	"time"
)

func TestStartStopSession(t *testing.T) {
	c := NewController(time.Second)
	id := c.StartSession()
	if id != 1 {
		t.Fatalf("expected first session id 1, got %d", id)
	}
	if !c.IsSessionValid(id) {
		t.Fatal("session should be valid right after start")
	}

	c.StopSession()
	if c.IsSessionValid(id) {
		t.Fatal("session should be invalid after stop")
	}
	if c.CurrentID() != id {
		t.Fatalf("stop must preserve the id, got %d want %d", c.CurrentID(), id)
	}
}

func TestSessionMismatchAfterRestart(t *testing.T) {
	c := NewController(time.Second)
	oldID := c.StartSession()
	c.StopSession()
	newID := c.StartSession()

	if newID == oldID {
		t.Fatal("restarting must strictly increase the session id")
	}
	if c.IsSessionValid(oldID) {
		t.Fatal("a callback captured with the old id must be invalid after restart")
	}
	if !c.IsSessionValid(newID) {
		t.Fatal("the new session id must be valid")
	}
}

func TestDiagnosticsRateLimited(t *testing.T) {
	c := NewController(time.Hour) // long window so the second write is suppressed
	c.UpdateBound(true)
	c.UpdateBound(false)
	if !c.Snapshot().Bound {
		t.Fatal("second write within the rate-limit window should be suppressed")
	}
}

func TestWatchdogFailsAfterMaxMisses(t *testing.T) {
	c := NewController(0)
	c.StartSession()

	var failedSession int64 = -1
	wd := NewWatchdog(c, time.Millisecond, time.Millisecond, 3, func(id int64) { failedSession = id })

	t0 := time.Now()
	c.RecordFrame(t0, 10)

	for i := 1; i <= 4; i++ {
		wd.check(t0.Add(time.Duration(i) * 10 * time.Millisecond))
	}

	if failedSession != 1 {
		t.Fatalf("expected watchdog to fail session 1 after repeated misses, got %d", failedSession)
	}
	if c.IsSessionValid(1) {
		t.Fatal("session should be stopped after the watchdog fails it")
	}
}
