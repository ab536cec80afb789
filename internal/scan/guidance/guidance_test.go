package guidance

import (
	"testing"
	"time"

	"github.com/your-org/scancore/internal/scan/geometry"
)

func testRoi() Roi {
	return Roi{CenterX: 0.5, CenterY: 0.5, Width: 0.7, Height: 0.55}
}

func testConfig() Config {
	return Config{
		MinArea:           0.05,
		MaxArea:           0.85,
		MaxCenterDistance: 0.3,
		StabilityThreshold: 0.4,
		MinSharpness:      100,
		LockDwell:         300 * time.Millisecond,
	}
}

// TestLockAfterDwell checks that a steady, centered, well-focused
// candidate reaches LOCKED once GOOD has held for the dwell period.
func TestLockAfterDwell(t *testing.T) {
	m := NewManager(testRoi(), testConfig())
	cand := CandidateInput{ID: "cand-1", Box: geometry.Rect{Left: 0.3, Top: 0.3, Right: 0.7, Bottom: 0.7}, Confidence: 0.8, Present: true}

	t0 := time.Now()
	var last ScanGuidanceState
	for i := 0; i < 20; i++ {
		now := t0.Add(time.Duration(i) * 50 * time.Millisecond)
		last = m.Step(cand, 0.05, 250, now)
		if last.State == StateLocked {
			break
		}
	}

	if last.State != StateLocked {
		t.Fatalf("expected LOCKED within 20 frames, got %s", last.State)
	}
	if !last.CanAddItem {
		t.Fatal("expected CanAddItem=true at LOCKED")
	}
	if last.LockedCandidateID != "cand-1" {
		t.Fatalf("expected locked candidate id cand-1, got %q", last.LockedCandidateID)
	}
}

// TestOffCenterNeverLocks checks that a candidate outside the ROI never
// reaches LOCKED.
func TestOffCenterNeverLocks(t *testing.T) {
	m := NewManager(testRoi(), testConfig())
	cand := CandidateInput{ID: "cand-1", Box: geometry.Rect{Left: 0.05, Top: 0.05, Right: 0.2, Bottom: 0.2}, Confidence: 0.8, Present: true}

	t0 := time.Now()
	for i := 0; i < 20; i++ {
		now := t0.Add(time.Duration(i) * 50 * time.Millisecond)
		s := m.Step(cand, 0.05, 250, now)
		if s.State == StateLocked {
			t.Fatalf("expected no LOCKED state for an off-center candidate, got LOCKED at frame %d", i)
		}
	}
}

func TestNoCandidateResetsToSearching(t *testing.T) {
	m := NewManager(testRoi(), testConfig())
	s := m.Step(CandidateInput{Present: false}, 0.1, 50, time.Now())
	if s.State != StateSearching {
		t.Fatalf("expected SEARCHING with no candidate, got %s", s.State)
	}
	if s.CanAddItem {
		t.Fatal("CanAddItem must be false outside LOCKED")
	}
}

func TestCanAddItemOnlyWhenLocked(t *testing.T) {
	m := NewManager(testRoi(), testConfig())
	cand := CandidateInput{ID: "cand-1", Box: geometry.Rect{Left: 0.3, Top: 0.3, Right: 0.7, Bottom: 0.7}, Confidence: 0.8, Present: true}
	s := m.Step(cand, 0.05, 250, time.Now())
	if s.State == StateLocked {
		t.Fatal("should not lock on first frame (dwell not met)")
	}
	if s.CanAddItem {
		t.Fatal("CanAddItem must only be true at LOCKED")
	}
}
