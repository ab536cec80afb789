package track

import (
	"testing"

	"github.com/your-org/scancore/internal/scan/detect"
)

func defaultConfig() Config {
	return Config{
		MinMatchScore:      0.2,
		MaxFrameGap:        8,
		MinConfidence:      0.5,
		MinBoxArea:         0.01,
		ExpiryFrames:       10,
		MinFramesToConfirm: 3,
		SmoothingAlpha:     0.3,
	}
}

func steadyDetection() detect.Detection {
	return detect.Detection{
		Box:        [4]float64{0.3, 0.3, 0.7, 0.7},
		Confidence: 0.8,
		Label:      "widget",
		Category:   detect.CategoryObject,
	}
}

func TestConfirmsAfterMinFrames(t *testing.T) {
	tr := NewTracker(defaultConfig())
	det := steadyDetection()

	var confirmed []*TrackCandidate
	for i := 0; i < 5; i++ {
		confirmed = tr.ProcessFrame([]detect.Detection{det}, 250)
	}

	if len(confirmed) != 1 {
		t.Fatalf("expected exactly 1 newly confirmed candidate on frame 5, got %d", len(confirmed))
	}
	if len(tr.Confirmed()) != 1 {
		t.Fatalf("expected 1 confirmed candidate overall, got %d", len(tr.Confirmed()))
	}
}

func TestConsumedCandidateNotReemitted(t *testing.T) {
	tr := NewTracker(defaultConfig())
	det := steadyDetection()

	for i := 0; i < 5; i++ {
		tr.ProcessFrame([]detect.Detection{det}, 250)
	}

	confirmed := tr.Confirmed()
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 confirmed candidate, got %d", len(confirmed))
	}
	tr.MarkConsumed(confirmed[0].ID)

	if got := tr.Confirmed(); len(got) != 0 {
		t.Fatalf("expected consumed candidate to be excluded, got %d", len(got))
	}
}

func TestLowConfidenceDetectionNeverSpawns(t *testing.T) {
	tr := NewTracker(defaultConfig())
	det := steadyDetection()
	det.Confidence = 0.1

	tr.ProcessFrame([]detect.Detection{det}, 250)
	if len(tr.candidates) != 0 {
		t.Fatalf("expected no candidate spawned for low-confidence detection, got %d", len(tr.candidates))
	}
}

func TestCandidateExpiresAfterGap(t *testing.T) {
	tr := NewTracker(defaultConfig())
	det := steadyDetection()

	tr.ProcessFrame([]detect.Detection{det}, 250)
	if len(tr.candidates) != 1 {
		t.Fatalf("expected 1 candidate spawned, got %d", len(tr.candidates))
	}

	for i := 0; i < 11; i++ {
		tr.ProcessFrame(nil, 250)
	}
	if len(tr.candidates) != 0 {
		t.Fatalf("expected candidate to expire after exceeding expiry frames, got %d", len(tr.candidates))
	}
}

func TestJointAssignmentAvoidsGreedyBias(t *testing.T) {
	tr := NewTracker(defaultConfig())

	a := detect.Detection{Box: [4]float64{0.1, 0.1, 0.3, 0.3}, Confidence: 0.9, Label: "a"}
	b := detect.Detection{Box: [4]float64{0.15, 0.1, 0.35, 0.3}, Confidence: 0.9, Label: "b"}
	tr.ProcessFrame([]detect.Detection{a, b}, 250)
	if len(tr.candidates) != 2 {
		t.Fatalf("expected two distinct candidates to spawn, got %d", len(tr.candidates))
	}

	// Next frame: boxes swap positions slightly but each should still
	// match its own prior candidate jointly, not whichever comes first.
	aNext := detect.Detection{Box: [4]float64{0.12, 0.1, 0.32, 0.3}, Confidence: 0.9, Label: "a"}
	bNext := detect.Detection{Box: [4]float64{0.17, 0.1, 0.37, 0.3}, Confidence: 0.9, Label: "b"}
	tr.ProcessFrame([]detect.Detection{aNext, bNext}, 250)

	if len(tr.candidates) != 2 {
		t.Fatalf("expected still exactly two candidates after re-matching, got %d", len(tr.candidates))
	}
	total := 0
	for _, c := range tr.candidates {
		total += c.FramesSeen
	}
	if total != 4 {
		t.Fatalf("expected both candidates matched (4 total frames-seen), got %d", total)
	}
}
