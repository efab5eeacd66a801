// Package realtime implements the delivery coordinator for authenticated live
// connections and the client-side reconnection agent.
package realtime

import (
	"encoding/json"
	"time"
)

// Frame kinds exchanged over a live connection.
const (
	FrameAuth     = "auth"
	FrameMessage  = "message"
	FramePresence = "presence"
	FramePing     = "ping"
	FramePong     = "pong"
	FrameError    = "error"
)

// Frame is the unit exchanged over a live connection.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewFrame builds a frame of the given type, marshalling data when non-nil.
func NewFrame(frameType string, data interface{}) Frame {
	f := Frame{Type: frameType, Timestamp: time.Now()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			f.Data = raw
		}
	}
	return f
}

// AuthData is sent back on a successful connection handshake.
type AuthData struct {
	Identifier string `json:"identifier"`
	SessionID  string `json:"session_id"`
}

// PresenceData is the broadcast presence delta.
type PresenceData struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
}

// PresenceUpdate is the inbound presence change request.
type PresenceUpdate struct {
	Status string `json:"status"`
}

// ErrorData carries the reason in an error frame.
type ErrorData struct {
	Message string `json:"message"`
}
