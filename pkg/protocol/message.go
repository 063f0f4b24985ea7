// Package protocol defines the WebSocket message types exchanged between
// the mocap server and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server commands
	TypeLoadStream MessageType = "load_stream" // Replace the pose stream
	TypePlay       MessageType = "play"        // Start, pause or toggle playback
	TypeSpeed      MessageType = "speed"       // Set speed multiplier
	TypeSeek       MessageType = "seek"        // Seek to a normalized position
	TypeLoop       MessageType = "loop"        // Set end-of-stream policy
	TypeSwapRig    MessageType = "swap_rig"    // Load a rig, empty URL for procedural
	TypeGetStatus  MessageType = "get_status"  // Request a status message

	// Server → Client messages
	TypeStatus MessageType = "status" // Session status
	TypePose   MessageType = "pose"   // Per-tick rig snapshot
	TypeFrame  MessageType = "frame"  // Overlay image
	TypeError  MessageType = "error"  // Command failure

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"` // Echoed in replies
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// Reply sets the reply's ID to the request's and returns the reply
func (m *Message) Reply(req *Message) *Message {
	if req != nil {
		m.ID = req.ID
	}
	return m
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// LoadStreamCommand replaces the pose stream. Exactly one of URL and
// Stream is set.
type LoadStreamCommand struct {
	URL    string          `json:"url,omitempty"`    // File path or http(s) URL
	Stream json.RawMessage `json:"stream,omitempty"` // Inline stream document
}

// PlayCommand starts or pauses playback
type PlayCommand struct {
	Playing *bool `json:"playing,omitempty"` // nil toggles
}

// SpeedCommand sets the speed multiplier
type SpeedCommand struct {
	Speed float64 `json:"speed"` // Must be > 0
}

// SeekCommand moves the playback cursor
type SeekCommand struct {
	Position float64 `json:"position"` // 0.0 to 1.0, clamped
}

// LoopCommand sets the end-of-stream policy
type LoopCommand struct {
	Loop bool `json:"loop"`
}

// SwapRigCommand loads a new rig
type SwapRigCommand struct {
	URL string `json:"url"` // Empty for the procedural rig
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// FrameData contains an overlay image
type FrameData struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
	Index   int    `json:"index"` // Stream frame index
}

// ErrorData reports a failed command
type ErrorData struct {
	Command MessageType `json:"command,omitempty"`
	Message string      `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
