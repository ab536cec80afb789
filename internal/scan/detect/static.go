package detect

import "context"

// StaticBackend is a deterministic synthetic Backend: it always returns
// the configured set of detections, regardless of the input image. It is
// the default detector wired by cmd/worker and is used by tests that need
// reproducible detector output (the seed scenarios in particular).
type StaticBackend struct {
	Detections []Detection
}

// NewStaticBackend builds a StaticBackend returning the given detections
// on every call.
func NewStaticBackend(detections ...Detection) *StaticBackend {
	return &StaticBackend{Detections: detections}
}

func (b *StaticBackend) Detect(ctx context.Context, image any, req Request) (Result, error) {
	out := make([]Detection, len(b.Detections))
	copy(out, b.Detections)
	return Result{Detections: out, OverlayResults: out}, nil
}

// SetDetections replaces the fixed detection set, letting a test drive
// the backend through a scripted sequence of frames.
func (b *StaticBackend) SetDetections(detections ...Detection) {
	b.Detections = detections
}
