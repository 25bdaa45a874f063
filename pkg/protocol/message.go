// Package protocol defines the WebSocket message envelope exchanged between
// the body controller and its operators (the master process, dashboards and
// the teleop console).
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Body → operator messages
	TypeEvent  MessageType = "event"  // Terminal notification of a turn or walk
	TypeStatus MessageType = "status" // Dispatcher snapshot
	TypeError  MessageType = "error"  // Rejected request

	// Operator → body messages
	TypeCommand MessageType = "command" // Queue a motion command
	TypeStop    MessageType = "stop"    // Stop fast path
	TypeSensors MessageType = "sensors" // Push yaw / range readings

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
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
	return &msg, nil
}

// =============================================================================
// Body → Operator Message Types
// =============================================================================

// EventData carries one notification token. Action and CommandID identify the
// command that produced it when known.
type EventData struct {
	Event     string `json:"event"`
	Action    string `json:"action,omitempty"`
	CommandID string `json:"command_id,omitempty"`
}

// ErrorData describes a rejected request
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Operator → Body Message Types
// =============================================================================

// CommandData is a motion request. Action is a wire code ("10") or a
// snake_case name ("turn").
type CommandData struct {
	Action    string `json:"action"`
	Direction bool   `json:"direction"`
	Value     int    `json:"value"`
}

// SensorData pushes the latest sensor readings. Nil fields are left alone.
type SensorData struct {
	Yaw        *float64 `json:"yaw,omitempty"`         // Degrees in (-180, 180]
	DistanceMM *float64 `json:"distance_mm,omitempty"` // Forward range
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
