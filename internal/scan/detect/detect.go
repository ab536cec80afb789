// Package detect defines the object-detector backend boundary and a
// deterministic synthetic backend for simulation/tests. Detector
// internals (a specific neural network) are out of scope; this package
// only carries the contract external backends implement.
package detect

import "context"

// Category is a coarse detection category. The backend is free to return
// any label text; category is carried through tracking into the
// RawDetection and does not affect routing, which is keyed by Mode.
type Category string

const (
	CategoryObject   Category = "OBJECT"
	CategoryBarcode  Category = "BARCODE"
	CategoryDocument Category = "DOCUMENT"
)

// Detection is one result from a single detect() call. Box is in upright
// (post-rotation, display-oriented) normalized space; the implementation
// MUST NOT pre-rotate source pixels.
type Detection struct {
	Box          [4]float64 // left, top, right, bottom, normalized [0,1]
	Confidence   float64
	Category     Category
	Label        string
	TrackingID   string // optional, set when the backend maintains its own track ids
}

// Request is the input to a single backend invocation.
type Request struct {
	RotationDegrees int
	UseStreamMode   bool
	CropRect        [4]float64 // optional, zero value means full frame
	EdgeInsetRatio  float64
}

// Result is the output of a single backend invocation.
type Result struct {
	Detections     []Detection
	OverlayResults []Detection // raw results kept for overlay rendering, pre-dedupe
}

// Backend is the external detector contract. Production backends are
// supplied by the host application; this package ships only the
// interface and StaticBackend.
type Backend interface {
	Detect(ctx context.Context, image any, req Request) (Result, error)
}
