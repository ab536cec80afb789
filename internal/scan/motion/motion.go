// Package motion computes a per-frame motion score from sub-sampled luma
// history, the cheap gate that drives the analyzer's polling cadence.
package motion

// Estimator maintains two sub-sampled luma buffers and produces a
// normalized motion score per frame.
type Estimator struct {
	sampleStep   int
	defaultScore float64

	width, height int
	prevValid     bool
	prev, cur     []byte
}

// NewEstimator builds an Estimator that sub-samples every sampleStep
// pixels and returns defaultScore when there is no valid previous frame.
func NewEstimator(sampleStep int, defaultScore float64) *Estimator {
	if sampleStep <= 0 {
		sampleStep = 8
	}
	return &Estimator{sampleStep: sampleStep, defaultScore: defaultScore}
}

// Reset invalidates the previous-frame buffer, as on a dimension change.
func (e *Estimator) Reset() {
	e.prevValid = false
}

// Score sub-samples the Y plane (width x height, rowStride bytes per row)
// and returns a score in [0,1]: the mean absolute luma difference against
// the previous frame's sub-sample, normalized by 255. Returns the
// configured default when there is no valid previous frame, including on
// any dimension change.
func (e *Estimator) Score(y []byte, width, height, rowStride int) float64 {
	sw := (width + e.sampleStep - 1) / e.sampleStep
	sh := (height + e.sampleStep - 1) / e.sampleStep
	n := sw * sh
	if n == 0 {
		return e.defaultScore
	}

	if width != e.width || height != e.height {
		e.width, e.height = width, height
		e.prev = make([]byte, n)
		e.cur = make([]byte, n)
		e.prevValid = false
	}

	idx := 0
	for row := 0; row < height; row += e.sampleStep {
		rowStart := row * rowStride
		for col := 0; col < width; col += e.sampleStep {
			pos := rowStart + col
			if pos < len(y) {
				e.cur[idx] = y[pos]
			}
			idx++
		}
	}

	if !e.prevValid {
		e.prev, e.cur = e.cur, e.prev
		e.prevValid = true
		return e.defaultScore
	}

	var sum int
	for i := 0; i < n; i++ {
		d := int(e.cur[i]) - int(e.prev[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}

	e.prev, e.cur = e.cur, e.prev
	return float64(sum) / (float64(n) * 255.0)
}

// PollInterval maps a motion score to the analyzer's polling cadence: the
// design step function is <=0.1 -> 600ms, <=0.5 -> 500ms, else 400ms,
// parameterized so the thresholds and cadences come from config.
func PollInterval(score, lowBand, midBand float64, lowMs, midMs, highMs int) int {
	switch {
	case score <= lowBand:
		return lowMs
	case score <= midBand:
		return midMs
	default:
		return highMs
	}
}
