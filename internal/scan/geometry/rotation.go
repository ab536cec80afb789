package geometry

import "fmt"

// ErrUnsupportedRotation is returned for any rotation degree outside
// {0, 90, 180, 270}.
var ErrUnsupportedRotation = fmt.Errorf("geometry: unsupported rotation")

// UprightToSensor maps a normalized box from upright (post-rotation,
// display-oriented) space into sensor (raw, unrotated) space, per the
// rotation table in the frame analyzer's coordinate contract. The detector
// always returns upright boxes; this is the inverse used to crop a
// thumbnail out of the sensor-orientation bitmap.
func UprightToSensor(box Rect, rotationDegrees int) (Rect, error) {
	switch rotationDegrees {
	case 0:
		return box, nil
	case 90:
		return NewRect(box.Top, 1-box.Right, box.Bottom, 1-box.Left)
	case 180:
		return NewRect(1-box.Right, 1-box.Bottom, 1-box.Left, 1-box.Top)
	case 270:
		return NewRect(1-box.Bottom, box.Left, 1-box.Top, box.Right)
	default:
		return Rect{}, ErrUnsupportedRotation
	}
}

// SensorToUpright is the inverse of UprightToSensor, used to verify the
// round-trip invariant (rotate sensor-space crop back to upright) and by
// any caller that only has sensor-space boxes on hand.
func SensorToUpright(box Rect, rotationDegrees int) (Rect, error) {
	switch rotationDegrees {
	case 0:
		return box, nil
	case 90:
		return NewRect(1-box.Bottom, box.Left, 1-box.Top, box.Right)
	case 180:
		return NewRect(1-box.Right, 1-box.Bottom, 1-box.Left, 1-box.Top)
	case 270:
		return NewRect(box.Top, 1-box.Right, box.Bottom, 1-box.Left)
	default:
		return Rect{}, ErrUnsupportedRotation
	}
}
