package models

import (
	"time"

	"github.com/google/uuid"
)

// ScannedItem is the persisted row written once a RawDetection is committed.
type ScannedItem struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SessionID     int64     `json:"session_id" db:"session_id"`
	CaptureID     uuid.UUID `json:"capture_id" db:"capture_id"`
	Label         string    `json:"label" db:"label"`
	Category      string    `json:"category" db:"category"`
	Confidence    float32   `json:"confidence" db:"confidence"`
	CaptureType   string    `json:"capture_type" db:"capture_type"` // SINGLE_SHOT | TRACKING
	Sharpness     float64   `json:"sharpness" db:"sharpness"`
	BBox          [4]float64 `json:"bbox" db:"-"`
	FrameKey      string    `json:"frame_key" db:"frame_key"`     // MinIO key of the full frame
	ThumbnailKey  string    `json:"thumbnail_key" db:"thumbnail_key"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// FrameTask is the message published to NATS for scan-worker processing.
type FrameTask struct {
	SessionID int64     `json:"session_id"`
	FrameID   uuid.UUID `json:"frame_id"`
	Timestamp time.Time `json:"timestamp"`
	FrameRef  string    `json:"frame_ref"` // MinIO object key of the raw YUV frame
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Rotation  int       `json:"rotation"` // one of 0, 90, 180, 270
	ScanMode  string    `json:"scan_mode"`
}

// ScanEvent is the lifecycle/guidance event published to the EVENTS stream
// and broadcast over the scan websocket hub.
type ScanEvent struct {
	Type      string    `json:"type"` // lock, session_failed
	SessionID int64     `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state,omitempty"`
	CaptureID string    `json:"capture_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}
