// Package analyzer implements the Frame Analyzer orchestrator: it
// drives motion → detection → tracking → guidance per frame, builds crop
// artifacts, and emits RawDetection events when guidance locks.
package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/scancore/internal/config"
	"github.com/your-org/scancore/internal/scan/convert"
	"github.com/your-org/scancore/internal/scan/detect"
	"github.com/your-org/scancore/internal/scan/geometry"
	"github.com/your-org/scancore/internal/scan/guidance"
	"github.com/your-org/scancore/internal/scan/motion"
	"github.com/your-org/scancore/internal/scan/session"
	"github.com/your-org/scancore/internal/scan/sharpness"
	"github.com/your-org/scancore/internal/scan/track"
)

// CaptureType distinguishes a single-shot capture from a tracked lock event.
type CaptureType string

const (
	CaptureSingleShot CaptureType = "SINGLE_SHOT"
	CaptureTracking   CaptureType = "TRACKING"
)

// RawDetection is the artifact the analyzer emits once per committed
// detection, at either single-shot or lock time.
type RawDetection struct {
	CaptureID   uuid.UUID
	Box         geometry.Rect // upright normalized space
	Confidence  float64
	Label       string
	Category    detect.Category
	TrackingID  string
	Sharpness   float64
	CaptureType CaptureType
	Thumbnail   []byte // JPEG-encoded crop, bitwise from the exact box
	FullFrame   []byte // JPEG-encoded full frame, private copy per detection
}

// FrameDecodeError wraps a convert failure so callers can errors.Is it.
type FrameDecodeError struct{ Err error }

func (e *FrameDecodeError) Error() string { return fmt.Sprintf("frame decode: %v", e.Err) }
func (e *FrameDecodeError) Unwrap() error { return e.Err }

// SessionMismatch indicates a callback arrived after the session changed.
var ErrSessionMismatch = fmt.Errorf("analyzer: session mismatch")

// Emitter persists and publishes a committed RawDetection. In this repo it
// is implemented by gluing internal/storage and internal/queue together in
// cmd/worker; kept as an interface here so the orchestration logic is
// testable without a live Postgres/MinIO/NATS stack.
type Emitter interface {
	EmitRawDetection(ctx context.Context, sessionID int64, rd RawDetection) error
}

// Analyzer is the per-process orchestrator. One instance serves many
// concurrent sessions, each with its own tracker/guidance state.
type Analyzer struct {
	cfg      config.ScanConfig
	backend  detect.Backend
	router   *detect.Router
	emitter  Emitter
	sessions *session.Controller

	perSession map[int64]*sessionState
}

type sessionState struct {
	motion    *motion.Estimator
	sharpness *sharpness.Estimator
	tracker   *track.Tracker
	guidance  *guidance.Manager
	isProcessing bool
}

// New builds an Analyzer. emitter may be nil, in which case LOCKED/SINGLE_SHOT
// results are returned to the caller but not persisted or published.
func New(cfg config.ScanConfig, backend detect.Backend, emitter Emitter, sessions *session.Controller) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		backend:    backend,
		router:     detect.NewRouter(cfg.ObjectDetectionIntervalMs, cfg.BarcodeIntervalMs, cfg.DocumentTextIntervalMs),
		emitter:    emitter,
		sessions:   sessions,
		perSession: map[int64]*sessionState{},
	}
}

func (a *Analyzer) stateFor(sessionID int64) *sessionState {
	st, ok := a.perSession[sessionID]
	if !ok {
		roi := guidance.Roi{CenterX: a.cfg.RoiCenterX, CenterY: a.cfg.RoiCenterY, Width: a.cfg.RoiWidth, Height: a.cfg.RoiHeight}
		gcfg := guidance.Config{
			MinArea:            a.cfg.MinArea,
			MaxArea:            a.cfg.MaxArea,
			MaxCenterDistance:  a.cfg.MaxCenterDistance,
			StabilityThreshold: a.cfg.StabilityThreshold,
			MinSharpness:       a.cfg.MinSharpness,
			LockDwell:          a.cfg.LockDwell,
		}
		tcfg := track.Config{
			MinMatchScore:      a.cfg.MinMatchScore,
			MaxFrameGap:        a.cfg.MaxFrameGap,
			MinConfidence:      a.cfg.MinConfidence,
			MinBoxArea:         a.cfg.MinBoxArea,
			ExpiryFrames:       a.cfg.ExpiryFrames,
			MinFramesToConfirm: a.cfg.MinFramesToConfirm,
			SmoothingAlpha:     a.cfg.SmoothingAlpha,
		}
		st = &sessionState{
			motion:    motion.NewEstimator(a.cfg.LumaSampleStep, a.cfg.MotionDefault),
			sharpness: sharpness.NewEstimator(a.cfg.SharpnessCropSize),
			tracker:   track.NewTracker(tcfg),
			guidance:  guidance.NewManager(roi, gcfg),
		}
		a.perSession[sessionID] = st
	}
	return st
}

// ProcessFrame runs the algorithm for a single frame: convert, compute
// motion/sharpness diagnostics, take the single-shot or tracking path, and
// emit any resulting RawDetections. If isScanning is
// false, tracker state is untouched.
func (a *Analyzer) ProcessFrame(ctx context.Context, sessionID int64, frame convert.Frame, rotationDegrees int, scanMode detect.Mode, isScanning bool, now time.Time) ([]RawDetection, []detect.Detection, error) {
	st := a.stateFor(sessionID)

	if st.isProcessing {
		return nil, nil, nil // one frame in flight at a time; drop the rest
	}
	st.isProcessing = true
	defer func() { st.isProcessing = false }()

	img, err := convert.ToImage(frame)
	if err != nil {
		return nil, nil, &FrameDecodeError{Err: err}
	}

	motionScore := st.motion.Score(img.Y, frame.Width, frame.Height, img.YStride)
	sharpnessScore := st.sharpness.FromYPlane(img.Y, frame.Width, frame.Height, img.YStride)

	if a.sessions != nil {
		a.sessions.RecordFrame(now, 0)
	}

	if scanMode != detect.ModeObjectDetection || !isScanning {
		return a.singleShotPath(ctx, sessionID, img, rotationDegrees, now)
	}

	return a.trackingPath(ctx, sessionID, st, img, rotationDegrees, motionScore, sharpnessScore, now)
}

func (a *Analyzer) singleShotPath(ctx context.Context, sessionID int64, img *image.YCbCr, rotationDegrees int, now time.Time) ([]RawDetection, []detect.Detection, error) {
	ok, _ := a.router.TryInvoke(detect.ModeObjectDetection, now)
	if !ok {
		return nil, nil, nil
	}

	result, err := a.backend.Detect(ctx, img, detect.Request{RotationDegrees: rotationDegrees, UseStreamMode: false})
	if err != nil {
		return nil, nil, fmt.Errorf("detector: %w", err)
	}
	result.Detections = a.router.ProcessResults(detect.ModeObjectDetection, now, result.Detections)

	captureID := uuid.New()
	raws := make([]RawDetection, 0, len(result.Detections))
	for _, d := range result.Detections {
		rd, err := a.buildRawDetection(img, d, rotationDegrees, captureID, CaptureSingleShot, 0)
		if err != nil {
			slog.Warn("build raw detection", "error", err)
			continue
		}
		raws = append(raws, rd)
	}

	a.emitAll(ctx, sessionID, raws)
	return raws, result.OverlayResults, nil
}

func (a *Analyzer) trackingPath(ctx context.Context, sessionID int64, st *sessionState, img *image.YCbCr, rotationDegrees int, motionScore, sharpnessScore float64, now time.Time) ([]RawDetection, []detect.Detection, error) {
	ok, _ := a.router.TryInvoke(detect.ModeObjectDetection, now)
	if !ok {
		return nil, nil, nil
	}

	result, err := a.backend.Detect(ctx, img, detect.Request{RotationDegrees: rotationDegrees, UseStreamMode: false})
	if err != nil {
		return nil, nil, fmt.Errorf("detector: %w", err)
	}
	result.Detections = a.router.ProcessResults(detect.ModeObjectDetection, now, result.Detections)

	st.tracker.ProcessFrame(result.Detections, sharpnessScore)

	best := bestCandidateInput(st.tracker)
	gs := st.guidance.Step(best, motionScore, sharpnessScore, now)

	if a.sessions != nil {
		a.sessions.RecordBBox(now)
	}

	if !gs.CanAddItem || gs.State != guidance.StateLocked {
		return nil, result.OverlayResults, nil
	}

	roiRect := st.guidance.RoiRect()
	captureID := uuid.New()
	var raws []RawDetection
	for _, cand := range st.tracker.Confirmed() {
		if !roiRect.Contains(cand.LastBox) {
			slog.Error("ROIAssertion: confirmed candidate outside ROI at lock time", "session_id", sessionID, "candidate_id", cand.ID)
			continue
		}
		d := detect.Detection{
			Box:        [4]float64{cand.LastBox.Left, cand.LastBox.Top, cand.LastBox.Right, cand.LastBox.Bottom},
			Confidence: cand.MaxConfidence,
			Category:   cand.Category,
			Label:      cand.Label,
			TrackingID: cand.TrackingID,
		}
		rd, err := a.buildRawDetection(img, d, rotationDegrees, captureID, CaptureTracking, cand.BestSharpness)
		if err != nil {
			slog.Warn("build raw detection", "error", err)
			continue
		}
		raws = append(raws, rd)
		st.tracker.MarkConsumed(cand.ID)
	}

	a.emitAll(ctx, sessionID, raws)
	return raws, result.OverlayResults, nil
}

func bestCandidateInput(t *track.Tracker) guidance.CandidateInput {
	confirmed := t.Confirmed()
	if len(confirmed) == 0 {
		return guidance.CandidateInput{Present: false}
	}
	best := confirmed[0]
	for _, c := range confirmed[1:] {
		if c.MaxConfidence > best.MaxConfidence {
			best = c
		}
	}
	return guidance.CandidateInput{ID: best.ID, Box: best.LastBox, Confidence: best.MaxConfidence, Present: true}
}

func (a *Analyzer) buildRawDetection(img *image.YCbCr, d detect.Detection, rotationDegrees int, captureID uuid.UUID, captureType CaptureType, sharpnessAtBest float64) (RawDetection, error) {
	box := geometry.Rect{Left: d.Box[0], Top: d.Box[1], Right: d.Box[2], Bottom: d.Box[3]}

	sensorBox, err := geometry.UprightToSensor(box, rotationDegrees)
	if err != nil {
		return RawDetection{}, err
	}

	thumb, err := cropAndRotate(img, sensorBox, rotationDegrees, a.cfg.ThumbnailMaxSide)
	if err != nil {
		return RawDetection{}, err
	}

	fullFrame := encodeJPEG(img)

	return RawDetection{
		CaptureID:   captureID,
		Box:         box,
		Confidence:  d.Confidence,
		Label:       d.Label,
		Category:    d.Category,
		TrackingID:  d.TrackingID,
		Sharpness:   sharpnessAtBest,
		CaptureType: captureType,
		Thumbnail:   thumb,
		FullFrame:   fullFrame,
	}, nil
}

func (a *Analyzer) emitAll(ctx context.Context, sessionID int64, raws []RawDetection) {
	if a.emitter == nil {
		return
	}
	if a.sessions != nil && !a.sessions.IsSessionValid(sessionID) {
		return // SessionMismatch: drop silently
	}
	for _, rd := range raws {
		if err := a.emitter.EmitRawDetection(ctx, sessionID, rd); err != nil {
			slog.Error("emit raw detection", "error", err, "session_id", sessionID)
		}
	}
}

// cropAndRotate crops sensorBox out of img in pixel space, then rotates the
// crop by rotationDegrees to produce a display-oriented JPEG thumbnail
// scaled so that max(width,height) <= maxSide.
func cropAndRotate(img *image.YCbCr, sensorBox geometry.Rect, rotationDegrees int, maxSide int) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	px1 := clampInt(int(sensorBox.Left*float64(w)), 0, w)
	py1 := clampInt(int(sensorBox.Top*float64(h)), 0, h)
	px2 := clampInt(int(sensorBox.Right*float64(w)), 0, w)
	py2 := clampInt(int(sensorBox.Bottom*float64(h)), 0, h)
	if px2 <= px1 || py2 <= py1 {
		return nil, fmt.Errorf("analyzer: degenerate crop rect")
	}

	cropRect := image.Rect(px1, py1, px2, py2)
	sub, ok := any(img).(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("analyzer: image does not support SubImage")
	}
	cropped := sub.SubImage(cropRect)

	rotated := rotate(cropped, rotationDegrees)
	rotated = scaleToMaxSide(rotated, maxSide)

	return encodeJPEG(rotated), nil
}

func rotate(img image.Image, degrees int) image.Image {
	if degrees == 0 {
		return img
	}
	b := img.Bounds()
	var out *image.RGBA
	switch degrees {
	case 90:
		out = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(b.Max.Y-1-y, x, img.At(x, y))
			}
		}
	case 180:
		out = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
			}
		}
	case 270:
		out = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				out.Set(y, b.Max.X-1-x, img.At(x, y))
			}
		}
	default:
		return img
	}
	return out
}

func scaleToMaxSide(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	scale := float64(maxSide) / float64(max(w, h))
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			sx := b.Min.X + x*w/nw
			sy := b.Min.Y + y*h/nh
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		slog.Warn("encode jpeg", "error", err)
		return nil
	}
	return buf.Bytes()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
