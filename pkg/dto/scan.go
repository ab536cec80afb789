package dto

// WSEvent is a WebSocket message for real-time scan-diagnostics delivery
// over /v1/scan/ws.
type WSEvent struct {
	Type      string `json:"type"` // lock, session_failed
	SessionID int64  `json:"session_id"`
	State     string `json:"state,omitempty"`
	CaptureID string `json:"capture_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
