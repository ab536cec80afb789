// Package track maintains candidate object tracks across frames and
// promotes stable candidates to "confirmed". Detection-to-candidate
// assignment is solved as a minimum-cost bipartite matching (Hungarian
// algorithm) rather than greedily per-detection, so a frame with several
// mutually-close candidates doesn't let assignment order bias the result.
package track

import (
	"sort"

	hg "github.com/charles-haynes/munkres"
	"github.com/your-org/scancore/internal/scan/detect"
	"github.com/your-org/scancore/internal/scan/geometry"
)

// TrackCandidate is a single tracked object, smoothed and scored across
// frames.
type TrackCandidate struct {
	ID               string
	LastBox          geometry.Rect
	SmoothedBox      geometry.Rect
	MaxConfidence    float64
	FramesSeen       int
	FramesSinceSeen  int
	Label            string
	Category         detect.Category
	Consumed         bool
	BestSharpness    float64
	TrackingID       string // backend tracking id, if the detector supplies one
}

// Config carries the tracker's thresholds, injected at construction.
type Config struct {
	MinMatchScore      float64
	MaxFrameGap        int
	MinConfidence      float64
	MinBoxArea         float64
	ExpiryFrames       int
	MinFramesToConfirm int
	SmoothingAlpha     float64
}

// Tracker holds live candidates and the per-frame bookkeeping needed to
// match new detections against them.
type Tracker struct {
	cfg        Config
	candidates map[string]*TrackCandidate
	frameCount int
	nextID     int
}

// NewTracker builds an empty Tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg, candidates: map[string]*TrackCandidate{}}
}

// ProcessFrame runs one frame of the tracking algorithm: age candidates,
// solve the assignment, update matched candidates, spawn new ones for
// unmatched detections, retire stale ones, and collect confirmed
// candidates. Returns every confirmed, unconsumed candidate seen this
// frame, so a confirmed candidate is returned again on each frame it is
// seen until MarkConsumed is called.
func (t *Tracker) ProcessFrame(detections []detect.Detection, frameSharpness float64) []*TrackCandidate {
	t.frameCount++

	ids := make([]string, 0, len(t.candidates))
	for id := range t.candidates {
		c := t.candidates[id]
		c.FramesSinceSeen++
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic row ordering for the cost matrix

	matched := t.assign(ids, detections)

	var newlyConfirmed []*TrackCandidate
	matchedDetections := map[int]bool{}

	for rowIdx, colIdx := range matched {
		if colIdx < 0 {
			continue
		}
		matchedDetections[colIdx] = true
		cand := t.candidates[ids[rowIdx]]
		t.updateCandidate(cand, detections[colIdx], frameSharpness)
	}

	for i, d := range detections {
		if matchedDetections[i] {
			continue
		}
		box := geometry.Rect{Left: d.Box[0], Top: d.Box[1], Right: d.Box[2], Bottom: d.Box[3]}
		if d.Confidence < t.cfg.MinConfidence || box.Area() < t.cfg.MinBoxArea {
			continue
		}
		t.spawn(d, frameSharpness)
	}

	t.resolveDuplicateTrackingIDs()

	for id, cand := range t.candidates {
		if cand.FramesSinceSeen > t.cfg.ExpiryFrames {
			delete(t.candidates, id)
			continue
		}
		if !cand.Consumed && cand.FramesSeen >= t.cfg.MinFramesToConfirm && cand.MaxConfidence >= t.cfg.MinConfidence {
			if cand.FramesSinceSeen == 0 {
				newlyConfirmed = append(newlyConfirmed, cand)
			}
		}
	}

	return newlyConfirmed
}

// resolveDuplicateTrackingIDs implements the failure-mode rule: when
// the backend reuses a tracking id across candidates, the candidate with
// more frames-seen keeps it (ties broken by higher max-confidence); the
// loser has its TrackingID cleared so it stops competing for id-equality
// match bonus next frame.
func (t *Tracker) resolveDuplicateTrackingIDs() {
	byTrackingID := map[string][]*TrackCandidate{}
	for _, cand := range t.candidates {
		if cand.TrackingID != "" {
			byTrackingID[cand.TrackingID] = append(byTrackingID[cand.TrackingID], cand)
		}
	}
	for _, group := range byTrackingID {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].FramesSeen != group[j].FramesSeen {
				return group[i].FramesSeen > group[j].FramesSeen
			}
			return group[i].MaxConfidence > group[j].MaxConfidence
		})
		for _, loser := range group[1:] {
			loser.TrackingID = ""
		}
	}
}

// assign solves the bipartite matching between live candidates (rows, in
// the order of ids) and incoming detections (columns). Cost is 1-score,
// with infeasible pairs (score below MinMatchScore or frame gap beyond
// MaxFrameGap) pinned above any real pairing so the solver never picks
// them. Returns, per row, the matched column index or -1.
func (t *Tracker) assign(ids []string, detections []detect.Detection) []int {
	if len(ids) == 0 || len(detections) == 0 {
		out := make([]int, len(ids))
		for i := range out {
			out[i] = -1
		}
		return out
	}

	const infeasibleCost = 10.0
	matrix := make([][]float64, len(ids))
	for i, id := range ids {
		cand := t.candidates[id]
		row := make([]float64, len(detections))
		for j, d := range detections {
			score := matchScore(cand, d)
			if score < t.cfg.MinMatchScore || cand.FramesSinceSeen > t.cfg.MaxFrameGap {
				row[j] = infeasibleCost
			} else {
				row[j] = 1 - score
			}
		}
		matrix[i] = row
	}

	ha, err := hg.NewHungarianAlgorithm(matrix)
	if err != nil {
		out := make([]int, len(ids))
		for i := range out {
			out[i] = -1
		}
		return out
	}
	matches := ha.Execute()

	for i, col := range matches {
		if col >= 0 && matrix[i][col] >= infeasibleCost {
			matches[i] = -1
		}
	}
	return matches
}

// matchScore combines IoU with backend tracking-id equality, as the
// ambiguous-match resolution requires.
func matchScore(cand *TrackCandidate, d detect.Detection) float64 {
	box := geometry.Rect{Left: d.Box[0], Top: d.Box[1], Right: d.Box[2], Bottom: d.Box[3]}
	score := geometry.IoU(cand.LastBox, box)
	if cand.TrackingID != "" && d.TrackingID != "" && cand.TrackingID == d.TrackingID {
		score += 0.5
		if score > 1 {
			score = 1
		}
	}
	return score
}

func (t *Tracker) updateCandidate(cand *TrackCandidate, d detect.Detection, frameSharpness float64) {
	box := geometry.Rect{Left: d.Box[0], Top: d.Box[1], Right: d.Box[2], Bottom: d.Box[3]}
	cand.LastBox = box
	cand.SmoothedBox = geometry.Lerp(cand.SmoothedBox, box, t.cfg.SmoothingAlpha)
	cand.FramesSeen++
	cand.FramesSinceSeen = 0
	if d.Confidence > cand.MaxConfidence {
		cand.MaxConfidence = d.Confidence
	}
	if frameSharpness > cand.BestSharpness {
		cand.BestSharpness = frameSharpness
	}
	if d.TrackingID != "" {
		cand.TrackingID = d.TrackingID
	}
	if d.Label != "" {
		cand.Label = d.Label
	}
}

func (t *Tracker) spawn(d detect.Detection, frameSharpness float64) {
	box := geometry.Rect{Left: d.Box[0], Top: d.Box[1], Right: d.Box[2], Bottom: d.Box[3]}
	t.nextID++
	id := idFor(t.nextID)
	t.candidates[id] = &TrackCandidate{
		ID:            id,
		LastBox:       box,
		SmoothedBox:   box,
		MaxConfidence: d.Confidence,
		FramesSeen:    1,
		Label:         d.Label,
		Category:      d.Category,
		BestSharpness: frameSharpness,
		TrackingID:    d.TrackingID,
	}
}

// Confirmed returns every currently confirmed, unconsumed candidate.
func (t *Tracker) Confirmed() []*TrackCandidate {
	var out []*TrackCandidate
	for _, cand := range t.candidates {
		if !cand.Consumed && cand.FramesSeen >= t.cfg.MinFramesToConfirm && cand.MaxConfidence >= t.cfg.MinConfidence {
			out = append(out, cand)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarkConsumed flags a candidate as consumed so the tracker never emits
// it again until its flag is cleared.
func (t *Tracker) MarkConsumed(id string) {
	if cand, ok := t.candidates[id]; ok {
		cand.Consumed = true
	}
}

func idFor(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	buf := make([]byte, 0, 8)
	for n > 0 {
		buf = append(buf, alphabet[n%36])
		n /= 36
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
