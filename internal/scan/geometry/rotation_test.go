package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b Rect) bool {
	const eps = 1e-9
	return math.Abs(a.Left-b.Left) < eps && math.Abs(a.Top-b.Top) < eps &&
		math.Abs(a.Right-b.Right) < eps && math.Abs(a.Bottom-b.Bottom) < eps
}

func TestRotationRoundTrip(t *testing.T) {
	upright := Rect{Left: 0.1, Top: 0.2, Right: 0.4, Bottom: 0.6}

	for _, rot := range []int{0, 90, 180, 270} {
		sensor, err := UprightToSensor(upright, rot)
		if err != nil {
			t.Fatalf("rotation %d: %v", rot, err)
		}
		roundTripped, err := SensorToUpright(sensor, rot)
		if err != nil {
			t.Fatalf("rotation %d: %v", rot, err)
		}
		if !almostEqual(upright, roundTripped) {
			t.Errorf("rotation %d: round trip mismatch: got %+v want %+v", rot, roundTripped, upright)
		}
	}
}

func TestUprightToSensorUnsupportedRotation(t *testing.T) {
	_, err := UprightToSensor(Rect{Left: 0, Top: 0, Right: 1, Bottom: 1}, 45)
	if err != ErrUnsupportedRotation {
		t.Fatalf("expected ErrUnsupportedRotation, got %v", err)
	}
}
