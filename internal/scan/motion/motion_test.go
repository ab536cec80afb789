package motion

import "testing"

func TestScoreReturnsDefaultOnFirstFrame(t *testing.T) {
	e := NewEstimator(2, 0.2)
	y := make([]byte, 16*16)
	if got := e.Score(y, 16, 16, 16); got != 0.2 {
		t.Fatalf("first-frame score = %v, want default 0.2", got)
	}
}

func TestScoreDetectsDifference(t *testing.T) {
	e := NewEstimator(1, 0.2)
	black := make([]byte, 4*4)
	white := make([]byte, 4*4)
	for i := range white {
		white[i] = 255
	}

	e.Score(black, 4, 4, 4)
	got := e.Score(white, 4, 4, 4)
	if got < 0.99 || got > 1.0 {
		t.Fatalf("score for full black->white transition = %v, want ~1.0", got)
	}
}

func TestScoreResetsOnDimensionChange(t *testing.T) {
	e := NewEstimator(1, 0.2)
	e.Score(make([]byte, 4*4), 4, 4, 4)
	got := e.Score(make([]byte, 8*8), 8, 8, 8)
	if got != 0.2 {
		t.Fatalf("score after dimension change = %v, want default 0.2", got)
	}
}

func TestPollInterval(t *testing.T) {
	cases := []struct {
		score float64
		want  int
	}{
		{0.05, 600},
		{0.3, 500},
		{0.9, 400},
	}
	for _, c := range cases {
		if got := PollInterval(c.score, 0.1, 0.5, 600, 500, 400); got != c.want {
			t.Errorf("PollInterval(%v) = %d, want %d", c.score, got, c.want)
		}
	}
}
