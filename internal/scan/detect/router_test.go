package detect

import (
	"testing"
	"time"
)

func TestTryInvokeThrottles(t *testing.T) {
	r := NewRouter(150, 200, 400)
	t0 := time.Now()

	ok, _ := r.TryInvoke(ModeObjectDetection, t0)
	if !ok {
		t.Fatal("first invocation should be accepted")
	}

	ok, ev := r.TryInvoke(ModeObjectDetection, t0.Add(50*time.Millisecond))
	if ok {
		t.Fatal("invocation within interval should be throttled")
	}
	if ev.Type != "throttled" {
		t.Fatalf("expected throttled event, got %q", ev.Type)
	}

	ok, _ = r.TryInvoke(ModeObjectDetection, t0.Add(200*time.Millisecond))
	if !ok {
		t.Fatal("invocation past the interval should be accepted")
	}

	counters := r.Counters(ModeObjectDetection)
	if counters.InvocationsAccepted != 2 || counters.InvocationsThrottled != 1 {
		t.Fatalf("unexpected counters: %+v", counters)
	}
}

func TestProcessResultsDedupes(t *testing.T) {
	r := NewRouter(150, 200, 400)
	t0 := time.Now()

	det := Detection{Box: [4]float64{0.1, 0.1, 0.2, 0.2}, Label: "item"}
	first := r.ProcessResults(ModeObjectDetection, t0, []Detection{det})
	if len(first) != 1 {
		t.Fatalf("expected 1 detection to survive, got %d", len(first))
	}

	second := r.ProcessResults(ModeObjectDetection, t0.Add(10*time.Millisecond), []Detection{det})
	if len(second) != 0 {
		t.Fatalf("expected duplicate within window to be deduped, got %d", len(second))
	}

	third := r.ProcessResults(ModeObjectDetection, t0.Add(500*time.Millisecond), []Detection{det})
	if len(third) != 1 {
		t.Fatalf("expected detection outside window to survive, got %d", len(third))
	}
}
