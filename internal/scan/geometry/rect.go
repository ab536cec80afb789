// Package geometry holds the normalized-rectangle math shared by the scan
// pipeline: box arithmetic, IoU, and the upright/sensor rotation mapping.
package geometry

import (
	"fmt"
	"math"
)

// Rect is a normalized rectangle in [0,1], left<right, top<bottom.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// ErrInvalidRect is returned when a rectangle violates left<right or top<bottom.
var ErrInvalidRect = fmt.Errorf("geometry: invalid rectangle")

// NewRect validates and constructs a Rect.
func NewRect(left, top, right, bottom float64) (Rect, error) {
	r := Rect{Left: left, Top: top, Right: right, Bottom: bottom}
	if !r.Valid() {
		return Rect{}, ErrInvalidRect
	}
	return r, nil
}

func (r Rect) Valid() bool {
	return r.Left < r.Right && r.Top < r.Bottom
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }

// Contains reports whether other lies entirely inside r (strict containment,
// used for the ROI lock check).
func (r Rect) Contains(other Rect) bool {
	return other.Left >= r.Left && other.Top >= r.Top &&
		other.Right <= r.Right && other.Bottom <= r.Bottom
}

// IoU returns the intersection-over-union of two rectangles, 0 when disjoint.
func IoU(a, b Rect) float64 {
	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right, b.Right)
	bottom := min(a.Bottom, b.Bottom)
	if right <= left || bottom <= top {
		return 0
	}
	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// CenterDistance returns the Euclidean distance between the centers of a and b.
func CenterDistance(a, b Rect) float64 {
	dx := a.CenterX() - b.CenterX()
	dy := a.CenterY() - b.CenterY()
	return math.Sqrt(dx*dx + dy*dy)
}

// Lerp linearly interpolates between a and b's corners by t (exponential
// moving average step when called with a small t).
func Lerp(a, b Rect, t float64) Rect {
	return Rect{
		Left:   a.Left + (b.Left-a.Left)*t,
		Top:    a.Top + (b.Top-a.Top)*t,
		Right:  a.Right + (b.Right-a.Right)*t,
		Bottom: a.Bottom + (b.Bottom-a.Bottom)*t,
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
