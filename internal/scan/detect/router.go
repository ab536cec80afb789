package detect

import (
	"fmt"
	"sync"
	"time"

	"github.com/your-org/scancore/internal/observability"
)

// Mode is one of the three mutually exclusive detection modes the router
// gates.
type Mode string

const (
	ModeObjectDetection Mode = "OBJECT_DETECTION"
	ModeBarcode         Mode = "BARCODE"
	ModeDocumentText    Mode = "DOCUMENT_TEXT"
)

// Event is the tagged-variant detection event the router and analyzer
// exchange; only one of its fields is meaningful per Type.
type Event struct {
	Type      string // object_detected | barcode_detected | document_detected | throttled
	Timestamp time.Time
	Source    Mode
	Reason    string
	Results   []Detection
}

// Counters tracks the router's per-mode bookkeeping.
type Counters struct {
	FramesSeen          int64
	InvocationsAccepted int64
	InvocationsThrottled int64
	ItemsDeduped        int64
}

type modeState struct {
	mu          sync.Mutex
	lastInvoked time.Time
	minInterval time.Duration
	counters    Counters
	seen        map[string]time.Time
}

// Router is the per-mode throttle/dedupe gate in front of the detector
// backends.
type Router struct {
	modes map[Mode]*modeState
}

// NewRouter builds a Router with the given per-mode minimum invocation
// intervals.
func NewRouter(objectIntervalMs, barcodeIntervalMs, documentIntervalMs int) *Router {
	return &Router{
		modes: map[Mode]*modeState{
			ModeObjectDetection: {minInterval: time.Duration(objectIntervalMs) * time.Millisecond, seen: map[string]time.Time{}},
			ModeBarcode:         {minInterval: time.Duration(barcodeIntervalMs) * time.Millisecond, seen: map[string]time.Time{}},
			ModeDocumentText:    {minInterval: time.Duration(documentIntervalMs) * time.Millisecond, seen: map[string]time.Time{}},
		},
	}
}

// TryInvoke atomically decides whether enough wall-clock time has elapsed
// since the last accepted invocation of the given mode. It reports the
// decision and, when rejected, emits a Throttled event.
func (r *Router) TryInvoke(mode Mode, now time.Time) (bool, Event) {
	st := r.modes[mode]
	st.mu.Lock()
	defer st.mu.Unlock()

	st.counters.FramesSeen++

	if !st.lastInvoked.IsZero() && now.Sub(st.lastInvoked) < st.minInterval {
		st.counters.InvocationsThrottled++
		observability.DetectorThrottled.WithLabelValues(string(mode)).Inc()
		return false, Event{Type: "throttled", Timestamp: now, Source: mode, Reason: "interval_not_elapsed"}
	}

	st.lastInvoked = now
	st.counters.InvocationsAccepted++
	observability.DetectorInvocations.WithLabelValues(string(mode)).Inc()
	return true, Event{}
}

// ProcessResults runs a dedupe pass over newly produced detections for the
// given mode, keyed by a normalized fingerprint of box+label, discarding
// anything already seen within the mode's own minimum interval window.
func (r *Router) ProcessResults(mode Mode, now time.Time, detections []Detection) []Detection {
	st := r.modes[mode]
	st.mu.Lock()
	defer st.mu.Unlock()

	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		fp := fingerprint(d)
		if last, ok := st.seen[fp]; ok && now.Sub(last) < st.minInterval {
			st.counters.ItemsDeduped++
			continue
		}
		st.seen[fp] = now
		kept = append(kept, d)
	}
	return kept
}

// Counters returns a snapshot of the bookkeeping for the given mode.
func (r *Router) Counters(mode Mode) Counters {
	st := r.modes[mode]
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counters
}

func fingerprint(d Detection) string {
	round := func(v float64) int64 { return int64(v * 1000) }
	return fmt.Sprintf("%s|%d|%d|%d|%d", d.Label, round(d.Box[0]), round(d.Box[1]), round(d.Box[2]), round(d.Box[3]))
}
