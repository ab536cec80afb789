// Package guidance merges tracker output, motion, and sharpness into the
// scan-guidance state machine: the per-frame verdict on whether a
// candidate is ready to be locked and committed.
package guidance

import (
	"time"

	"github.com/your-org/scancore/internal/scan/geometry"
)

// State is one value of the scan-guidance state machine.
type State string

const (
	StateSearching State = "SEARCHING"
	StateTooClose  State = "TOO_CLOSE"
	StateTooFar    State = "TOO_FAR"
	StateOffCenter State = "OFF_CENTER"
	StateUnstable  State = "UNSTABLE"
	StateFocusing  State = "FOCUSING"
	StateGood      State = "GOOD"
	StateLocked    State = "LOCKED"
)

// Roi is the region of interest a candidate must lie in to be lockable.
// Fixed by default per the open-question resolution in DESIGN.md, but not
// structurally prevented from being mutated by an adaptive strategy.
type Roi struct {
	CenterX, CenterY float64
	Width, Height    float64
}

func (r Roi) Rect() geometry.Rect {
	return geometry.Rect{
		Left:   r.CenterX - r.Width/2,
		Top:    r.CenterY - r.Height/2,
		Right:  r.CenterX + r.Width/2,
		Bottom: r.CenterY + r.Height/2,
	}
}

// CandidateInput is the best candidate's box/confidence for this frame, or
// the zero value when no candidate is present.
type CandidateInput struct {
	ID         string
	Box        geometry.Rect
	Confidence float64
	Present    bool
}

// ScanGuidanceState is the value produced per frame.
type ScanGuidanceState struct {
	State              State
	Roi                Roi
	BoxArea            float64
	Sharpness          float64
	Motion             float64
	CenterDistance     float64
	LockedCandidateID  string
	CanAddItem         bool
	Hint               string
}

// Config carries every threshold the state machine needs.
type Config struct {
	MinArea            float64
	MaxArea             float64
	MaxCenterDistance   float64
	StabilityThreshold  float64
	MinSharpness        float64
	LockDwell           time.Duration
}

// Manager owns the ROI and the current state, and advances the state
// machine one frame at a time.
type Manager struct {
	cfg   Config
	roi   Roi
	state State

	goodSince      time.Time
	goodCandidate  string
	history        []geometry.Rect // short sliding window of box centers for stability
}

// NewManager builds a Manager with a fixed ROI and the GOOD→LOCKED dwell
// threshold from cfg.
func NewManager(roi Roi, cfg Config) *Manager {
	return &Manager{cfg: cfg, roi: roi, state: StateSearching}
}

// RoiRect returns the manager's current ROI as a geometry.Rect, used by
// the analyzer's strict-containment check at lock time.
func (m *Manager) RoiRect() geometry.Rect {
	return m.roi.Rect()
}

const stabilityWindow = 5

// Step advances the state machine one frame, given the best tracked
// candidate (if any), the motion score, sharpness score, and the current
// wall-clock time.
func (m *Manager) Step(candidate CandidateInput, motion, sharpness float64, now time.Time) ScanGuidanceState {
	if !candidate.Present {
		m.reset()
		return m.emit(0, sharpness, motion, 0, "")
	}

	roiRect := m.roi.Rect()
	area := candidate.Box.Area()
	centerDist := geometry.CenterDistance(roiRect, candidate.Box)

	m.history = append(m.history, candidate.Box)
	if len(m.history) > stabilityWindow {
		m.history = m.history[len(m.history)-stabilityWindow:]
	}
	stability := m.centerVariance()

	next := m.nextState(area, centerDist, stability, motion, sharpness, candidate.ID, now)
	m.state = next

	lockedID := ""
	canAdd := false
	if next == StateLocked {
		canAdd = true
		lockedID = m.goodCandidate
	}

	return m.emit(area, sharpness, motion, centerDist, lockedID, withCanAdd(canAdd))
}

type emitOpt func(*ScanGuidanceState)

func withCanAdd(v bool) emitOpt {
	return func(s *ScanGuidanceState) { s.CanAddItem = v }
}

func (m *Manager) emit(area, sharpness, motion, centerDist float64, lockedID string, opts ...emitOpt) ScanGuidanceState {
	s := ScanGuidanceState{
		State:             m.state,
		Roi:               m.roi,
		BoxArea:           area,
		Sharpness:         sharpness,
		Motion:            motion,
		CenterDistance:    centerDist,
		LockedCandidateID: lockedID,
		Hint:              hintFor(m.state),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (m *Manager) nextState(area, centerDist, stability, motion, sharpness float64, candidateID string, now time.Time) State {
	outOfBounds := area < m.cfg.MinArea || area > m.cfg.MaxArea || centerDist > m.cfg.MaxCenterDistance
	if m.state == StateLocked && outOfBounds {
		m.reset()
		return StateSearching
	}

	switch {
	case area < m.cfg.MinArea:
		m.clearGood()
		return StateTooFar
	case area > m.cfg.MaxArea:
		m.clearGood()
		return StateTooClose
	case centerDist > m.cfg.MaxCenterDistance:
		m.clearGood()
		return StateOffCenter
	case stability > m.cfg.StabilityThreshold:
		m.clearGood()
		return StateUnstable
	}

	if m.state == StateUnstable && sharpness < m.cfg.MinSharpness {
		return StateFocusing
	}
	if sharpness < m.cfg.MinSharpness {
		m.clearGood()
		return StateFocusing
	}

	// area/center/motion/sharpness all within band: GOOD, possibly LOCKED.
	if m.goodCandidate != candidateID {
		m.goodCandidate = candidateID
		m.goodSince = now
	}
	if m.state == StateLocked && m.goodCandidate == candidateID {
		return StateLocked
	}
	if now.Sub(m.goodSince) >= m.cfg.LockDwell {
		return StateLocked
	}
	return StateGood
}

func (m *Manager) clearGood() {
	m.goodCandidate = ""
	m.goodSince = time.Time{}
}

func (m *Manager) reset() {
	m.state = StateSearching
	m.clearGood()
	m.history = nil
}

func (m *Manager) centerVariance() float64 {
	if len(m.history) < 2 {
		return 0
	}
	var sumX, sumY float64
	for _, r := range m.history {
		sumX += r.CenterX()
		sumY += r.CenterY()
	}
	n := float64(len(m.history))
	meanX, meanY := sumX/n, sumY/n

	var varSum float64
	for _, r := range m.history {
		dx := r.CenterX() - meanX
		dy := r.CenterY() - meanY
		varSum += dx*dx + dy*dy
	}
	return varSum / n
}

func hintFor(s State) string {
	switch s {
	case StateTooClose:
		return "move_back"
	case StateTooFar:
		return "move_closer"
	case StateOffCenter:
		return "center_item"
	case StateUnstable:
		return "hold_steady"
	case StateFocusing:
		return "hold_still_to_focus"
	case StateGood:
		return "hold_still"
	case StateLocked:
		return ""
	default:
		return "searching"
	}
}
